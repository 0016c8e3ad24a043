package main

import (
	"github.com/spf13/cobra"

	"rolegate/internal/workflow"
)

// newTranslationsCommand groups the catalog management targets under one
// subtree so `rolegate translations extract` mirrors the pipeline target
// `i18n-extract`.
func newTranslationsCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "translations",
		Aliases: []string{"i18n"},
		Short:   "Manage translation catalogs",
	}

	sub := func(use, short, targetID string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.runTarget(cmd.OutOrStdout(), targetID, nil)
			},
		}
	}

	push := &cobra.Command{
		Use:   "push",
		Short: "Upload the source catalog template to the translation service",
		Args:  cobra.NoArgs,
	}
	var yes bool
	push.Flags().BoolVarP(&yes, "yes", "y", false, "approve the push without the dashboard prompt")
	push.RunE = func(cmd *cobra.Command, _ []string) error {
		var approved []string
		if yes {
			approved = []string{workflow.TargetI18nPush}
		}
		return c.runTarget(cmd.OutOrStdout(), workflow.TargetI18nPush, approved)
	}

	cmd.AddCommand(
		sub("extract", "Extract translatable strings into the catalog template", workflow.TargetI18nExtract),
		sub("dummy", "Generate the pseudo-locale catalog for layout testing", workflow.TargetI18nDummy),
		sub("compile", "Compile catalogs into their runtime JSON form", workflow.TargetI18nCompile),
		sub("pull", "Download completed translations from the service", workflow.TargetI18nPull),
		push,
		sub("validate", "Check catalogs are current, complete, and compiled", workflow.TargetI18nCheck),
	)
	return cmd
}
