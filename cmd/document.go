package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/emrgen/suggest/internal/service"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "document commands",
}

func init() {
	rootCmd.AddCommand(docCmd)
	docCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	docCmd.AddCommand(createDocCmd())
	docCmd.AddCommand(getDocCmd())
	docCmd.AddCommand(editDocCmd())
	docCmd.AddCommand(docHistoryCmd())
}

func createDocCmd() *cobra.Command {
	var docID string
	var docTitle string
	var content string

	var required = []string{"title"}

	command := &cobra.Command{
		Use:     "create",
		Short:   "create a document",
		Long:    `create a document with the given title and content`,
		Example: "suggest doc create -d <doc_id> -t <title> -c <content>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			if docID != "" {
				if _, err := uuid.Parse(docID); err != nil {
					logrus.Error("invalid document id, expected a valid uuid")
					return
				}
			}

			doc, err := newClient().CreateDocument(context.Background(), service.CreateDocumentRequest{
				DocumentID: docID,
				Title:      docTitle,
				Content:    content,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("document created with id: %s", doc.ID)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id")
	command.Flags().StringVarP(&docTitle, "title", "t", "", "title of the document (required)")
	command.Flags().StringVarP(&content, "content", "c", "", "content of the document")

	command.Flags().SortFlags = false

	return command
}

func getDocCmd() *cobra.Command {
	var docID string

	var required = []string{"doc-id"}

	command := &cobra.Command{
		Use:     "get",
		Short:   "get a document",
		Example: "suggest doc get -d <doc-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			doc, err := newClient().GetDocument(context.Background(), docID)
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Version", "Updated"})
			table.Append([]string{doc.ID, strconv.FormatInt(doc.Version, 10), doc.UpdatedAt.Format("2006-01-02 15:04:05")})
			table.Render()
			printField("Title", doc.Title)
			printField("Content", doc.Content)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")

	return command
}

func editDocCmd() *cobra.Command {
	var docID string
	var actorID string
	var content string
	var description string
	var version int64

	var required = []string{"doc-id", "actor-id", "content"}

	command := &cobra.Command{
		Use:     "edit",
		Short:   "overwrite the content of a document",
		Example: "suggest doc edit -d <doc-id> -a <actor-id> -c <content> -m <description>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			req := service.EditDocumentRequest{
				DocumentID:  docID,
				ActorID:     actorID,
				Content:     content,
				Description: description,
			}
			if version != -1 {
				req.Version = &version
			}

			res, err := newClient().EditDocument(context.Background(), req)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("document %s updated to version %d", res.Document.ID, res.Document.Version)
			printRevision(res.Revision)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&actorID, "actor-id", "a", "", "editor id (required)")
	command.Flags().StringVarP(&content, "content", "c", "", "new content (required)")
	command.Flags().StringVarP(&description, "message", "m", "", "description of the change")
	command.Flags().Int64VarP(&version, "version", "v", -1, "expected current version")

	command.Flags().SortFlags = false

	return command
}

func docHistoryCmd() *cobra.Command {
	var docID string
	var page int
	var pageSize int
	var active bool

	var required = []string{"doc-id"}

	command := &cobra.Command{
		Use:     "history",
		Short:   "list the revisions of a document",
		Example: "suggest doc history -d <doc-id> --active",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			res, err := newClient().ListRevisions(context.Background(), service.ListRevisionsRequest{
				DocumentID: docID,
				Page:       page,
				PageSize:   pageSize,
				ActiveOnly: active,
			})
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"#", "ID", "Kind", "Actor", "+/-", "Active", "Description"})
			for _, revision := range res.Revisions {
				activeCell := color.GreenString("yes")
				if !revision.Active {
					activeCell = color.RedString("no")
				}
				table.Append([]string{
					strconv.FormatInt(revision.Sequence, 10),
					revision.ID,
					string(revision.Kind),
					revision.ActorID,
					fmt.Sprintf("+%d/-%d", revision.LinesAdded, revision.LinesRemoved),
					activeCell,
					revision.Description,
				})
			}
			table.Render()
			fmt.Printf("page %d, %d of %d revision(s)\n", res.Page, len(res.Revisions), res.Total)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().IntVar(&page, "page", 1, "page number")
	command.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	command.Flags().BoolVar(&active, "active", false, "only revisions that were not rolled back")

	return command
}
