package cmd

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/emrgen/suggest"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var suggestionCmd = &cobra.Command{
	Use:   "suggestion",
	Short: "suggestion commands",
}

func init() {
	rootCmd.AddCommand(suggestionCmd)
	suggestionCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	suggestionCmd.AddCommand(submitSuggestionCmd())
	suggestionCmd.AddCommand(getSuggestionCmd())
	suggestionCmd.AddCommand(listSuggestionsCmd())
	suggestionCmd.AddCommand(requeueSuggestionCmd())
	suggestionCmd.AddCommand(deadJobsCmd())
}

func submitSuggestionCmd() *cobra.Command {
	var docID string
	var userID string
	var category string
	var details string

	var required = []string{"doc-id", "user-id", "category", "details"}

	command := &cobra.Command{
		Use:     "submit",
		Short:   "submit a suggestion for a document",
		Example: "suggest suggestion submit -d <doc-id> -u <user-id> -k correction -m <details>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			res, err := newClient().SubmitSuggestion(context.Background(), service.SubmitRequest{
				DocumentID:  docID,
				SubmitterID: userID,
				Category:    model.Category(category),
				Details:     details,
			})

			var apiErr *suggest.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfterMinutes > 0 {
				color.Yellow("rate limited, retry in %d minute(s)\n", apiErr.RetryAfterMinutes)
				return
			}
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("suggestion queued with id: %s", res.ID)
		},
	}

	command.Flags().StringVarP(&docID, "doc-id", "d", "", "document id (required)")
	command.Flags().StringVarP(&userID, "user-id", "u", "", "submitter id (required)")
	command.Flags().StringVarP(&category, "category", "k", "", "one of content_addition, correction, clarity, example, link_update (required)")
	command.Flags().StringVarP(&details, "details", "m", "", "what should change and why (required)")

	command.Flags().SortFlags = false

	return command
}

func getSuggestionCmd() *cobra.Command {
	var suggestionID string

	var required = []string{"suggestion-id"}

	command := &cobra.Command{
		Use:     "get",
		Short:   "get a suggestion",
		Example: "suggest suggestion get -s <suggestion-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			s, err := newClient().GetSuggestion(context.Background(), suggestionID)
			if err != nil {
				logrus.Error(err)
				return
			}

			printSuggestions([]*model.Suggestion{s})
			printField("Details", s.Details)
			if s.RejectionReason != nil {
				printField("Reason", *s.RejectionReason)
			}
			if s.Description != nil {
				printField("Change", *s.Description)
			}
		},
	}

	command.Flags().StringVarP(&suggestionID, "suggestion-id", "s", "", "suggestion id (required)")

	return command
}

func listSuggestionsCmd() *cobra.Command {
	var userID string
	var page int
	var pageSize int

	var required = []string{"user-id"}

	command := &cobra.Command{
		Use:     "list",
		Short:   "list the suggestions of a submitter",
		Example: "suggest suggestion list -u <user-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			res, err := newClient().ListSuggestions(context.Background(), userID, page, pageSize)
			if err != nil {
				logrus.Error(err)
				return
			}

			printSuggestions(res.Suggestions)
			printField("Total", strconv.FormatInt(res.Total, 10))
		},
	}

	command.Flags().StringVarP(&userID, "user-id", "u", "", "submitter id (required)")
	command.Flags().IntVar(&page, "page", 1, "page number")
	command.Flags().IntVar(&pageSize, "page-size", 20, "page size")

	return command
}

func requeueSuggestionCmd() *cobra.Command {
	var suggestionID string

	var required = []string{"suggestion-id"}

	command := &cobra.Command{
		Use:     "requeue",
		Short:   "queue a pending suggestion again",
		Example: "suggest suggestion requeue -s <suggestion-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			if err := newClient().RequeueSuggestion(context.Background(), suggestionID); err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("suggestion %s queued", suggestionID)
		},
	}

	command.Flags().StringVarP(&suggestionID, "suggestion-id", "s", "", "suggestion id (required)")

	return command
}

func deadJobsCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "dead",
		Short: "list jobs that ran out of attempts",
		Run: func(cmd *cobra.Command, args []string) {
			jobs, err := newClient().DeadLetters(context.Background())
			if err != nil {
				logrus.Error(err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Job", "Suggestion", "Attempts", "Last Error"})
			for _, job := range jobs {
				table.Append([]string{job.ID, job.SuggestionID, strconv.Itoa(job.Attempt), job.LastError})
			}
			table.Render()
		},
	}

	return command
}

func printSuggestions(suggestions []*model.Suggestion) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Document", "Category", "Status", "Created"})
	for _, s := range suggestions {
		table.Append([]string{
			s.ID,
			s.DocumentID,
			s.Category.Label(),
			statusCell(s.Status),
			s.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func statusCell(status model.SuggestionStatus) string {
	switch status {
	case model.StatusApprovedApplied, model.StatusApproved:
		return color.GreenString(string(status))
	case model.StatusPending:
		return color.YellowString(string(status))
	default:
		return color.RedString(string(status))
	}
}
