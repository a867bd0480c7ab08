package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/taxonomy/pkg/presenter"
	"github.com/jingkaihe/taxonomy/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect the embedded schema documents",
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List embedded schema versions and documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		versions, err := schema.Versions()
		if err != nil {
			return err
		}
		for _, version := range versions {
			fmt.Printf("v%d: %s\n", version, strings.Join(schema.DocumentNames(), " "))
		}
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show <version>/<document>",
	Short: "Print an embedded schema document",
	Long: `Print an embedded schema document, e.g.:

  taxonomy schema show v3/knowledge.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, name, err := splitSchemaRef(args[0])
		if err != nil {
			return err
		}
		data, err := schema.Read(version, name)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every embedded schema document against the meta-schema",
	Long: `Verify that every embedded schema document is itself a legal JSON Schema
draft 2020-12 document. All failures are reported, not just the first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := presenter.Default()
		err := schema.CheckAll()
		if err == nil {
			p.Success("All schema documents are valid")
			return nil
		}

		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, failure := range merr.Errors {
				p.Error(failure, "")
			}
			return errors.Errorf("%d schema documents failed meta-validation", len(merr.Errors))
		}
		return err
	},
}

func splitSchemaRef(ref string) (int, string, error) {
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "v") {
		return 0, "", errors.Errorf("invalid schema reference %q, expected <version>/<document>", ref)
	}
	version, err := strconv.Atoi(parts[0][1:])
	if err != nil {
		return 0, "", errors.Errorf("invalid schema version %q", parts[0])
	}
	return version, parts[1], nil
}

func init() {
	schemaCmd.AddCommand(schemaListCmd)
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
}
