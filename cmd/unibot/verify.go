package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/unibot-go/internal/catalog"
	"github.com/garyellow/unibot-go/internal/knowledge"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Validate the knowledge-base files",
		Long: `Loads the Q&A and course files with the same checks the server
runs at startup and reports what they contain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}

			base, err := knowledge.Load(cfg.QAPath, cfg.CoursesPath)
			if err != nil {
				return err
			}
			cat, err := catalog.New(base.Courses)
			if err != nil {
				return fmt.Errorf("catalog: %w", err)
			}

			cmd.Printf("Q&A entries:  %d (%s)\n", len(base.QA), cfg.QAPath)
			cmd.Printf("Courses:      %d (%s)\n", cat.Len(), cfg.CoursesPath)
			cmd.Printf("Departments:  %d of %d\n", len(cat.Departments()), len(catalog.FacultyMap))
			cmd.Printf("Indexed rows: %d\n", len(base.Entries()))
			cmd.Println("Knowledge base OK")
			return nil
		},
	}
}
