// Command studyctl drives a StudyForge server from the terminal, or runs
// the built-in offline content when no server is available.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/studyforge/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	server  string
	offline bool
	output  string
	user    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "studyctl",
		Short:         "StudyForge command line client",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			switch opts.output {
			case "json", "yaml":
				return nil
			}
			return fmt.Errorf("unknown output format %q: use json or yaml", opts.output)
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("STUDYFORGE_SERVER", "http://localhost:5000"), "StudyForge server URL")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "use the built-in offline content instead of a server")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "user ID recorded in history")

	root.AddCommand(newQuizCmd(opts))
	root.AddCommand(newRoadmapCmd(opts))
	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newCoursesCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	return root
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// backendFor picks the remote client or the offline runner.
func backendFor(opts *options) (backend, error) {
	if opts.offline {
		return newLocal()
	}
	return newRemote(opts.server), nil
}

func newQuizCmd(opts *options) *cobra.Command {
	var count int
	var types []string
	cmd := &cobra.Command{
		Use:   "quiz TOPIC",
		Short: "Generate a quiz on a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backendFor(opts)
			if err != nil {
				return err
			}
			v, err := b.Quiz(cmd.Context(), strings.Join(args, " "), count, types, opts.user)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, v)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of questions")
	cmd.Flags().StringSliceVar(&types, "types", nil, "question types (mcq, fill_blank, true_false)")
	return cmd
}

func newRoadmapCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "roadmap TOPIC",
		Short: "Generate a learning roadmap",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backendFor(opts)
			if err != nil {
				return err
			}
			v, err := b.Roadmap(cmd.Context(), strings.Join(args, " "), opts.user)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, v)
		},
	}
}

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat MESSAGE",
		Short: "Ask the teaching assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backendFor(opts)
			if err != nil {
				return err
			}
			v, err := b.Chat(cmd.Context(), strings.Join(args, " "), opts.user)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, v)
		},
	}
}

func newCoursesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Course recommendations and search",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recommend INTEREST...",
		Short: "Recommend courses for one or more interests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backendFor(opts)
			if err != nil {
				return err
			}
			v, err := b.Recommend(cmd.Context(), args)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, v)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search QUERY",
		Short: "Search external courses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backendFor(opts)
			if err != nil {
				return err
			}
			v, err := b.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, v)
		},
	})
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "history USER",
		Short: "Show a user's learning history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backendFor(opts)
			if err != nil {
				return err
			}
			v, err := b.History(cmd.Context(), args[0], stats)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, v)
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "show summary statistics only")
	return cmd
}
