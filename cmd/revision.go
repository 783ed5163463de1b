package cmd

import (
	"context"
	"fmt"

	"github.com/emrgen/suggest/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var revisionCmd = &cobra.Command{
	Use:   "revision",
	Short: "revision commands",
}

func init() {
	rootCmd.AddCommand(revisionCmd)
	revisionCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	revisionCmd.AddCommand(getRevisionCmd())
	revisionCmd.AddCommand(rollbackRevisionCmd())
}

func getRevisionCmd() *cobra.Command {
	var revisionID string
	var diff bool

	var required = []string{"revision-id"}

	command := &cobra.Command{
		Use:     "get",
		Short:   "get a revision",
		Example: "suggest revision get -r <revision-id> --diff",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			revision, err := newClient().GetRevision(context.Background(), revisionID)
			if err != nil {
				logrus.Error(err)
				return
			}

			printRevision(revision)
			if diff {
				fmt.Println(revision.Diff)
			}
		},
	}

	command.Flags().StringVarP(&revisionID, "revision-id", "r", "", "revision id (required)")
	command.Flags().BoolVar(&diff, "diff", false, "print the unified diff")

	return command
}

func rollbackRevisionCmd() *cobra.Command {
	var revisionID string
	var actorID string

	var required = []string{"revision-id", "actor-id"}

	command := &cobra.Command{
		Use:     "rollback",
		Short:   "restore the content a revision replaced",
		Example: "suggest revision rollback -r <revision-id> -a <actor-id>",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			res, err := newClient().Rollback(context.Background(), revisionID, actorID)
			if err != nil {
				logrus.Error(err)
				return
			}

			logrus.Infof("revision %s rolled back, document %s is at version %d", revisionID, res.Document.ID, res.Document.Version)
			printRevision(res.Revision)
		},
	}

	command.Flags().StringVarP(&revisionID, "revision-id", "r", "", "revision id (required)")
	command.Flags().StringVarP(&actorID, "actor-id", "a", "", "who performs the rollback (required)")

	return command
}

func printRevision(revision *service.RevisionEntry) {
	if revision == nil {
		return
	}

	printField("Revision", fmt.Sprintf("#%d %s", revision.Sequence, revision.ID))
	printField("Kind", string(revision.Kind))
	printField("Actor", revision.ActorID)
	printField("Description", revision.Description)
	printField("Lines", fmt.Sprintf("+%d/-%d", revision.LinesAdded, revision.LinesRemoved))
	if revision.Suggestion != nil {
		printField("Suggestion", fmt.Sprintf("%s by %s", revision.Suggestion.ID, revision.Suggestion.SubmitterID))
	}
	if !revision.Active && revision.RolledBackBy != nil {
		printField("Rolled back by", *revision.RolledBackBy)
	}
}
