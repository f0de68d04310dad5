package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danshapiro/murderparty/internal/mystery/catalog"
	"github.com/danshapiro/murderparty/internal/mystery/seed"
	"github.com/danshapiro/murderparty/internal/mystery/validate"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <package.json>",
		Short: "Check a package file for structural issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dec := json.NewDecoder(bytes.NewReader(b))
			dec.UseNumber()
			var doc map[string]any
			if err := dec.Decode(&doc); err != nil || doc == nil {
				return fmt.Errorf("%s: not a JSON object", args[0])
			}
			issues := validate.Document(doc)
			if len(issues) == 0 {
				fmt.Fprintln(a.out, "ok")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintln(a.out, "-", issue)
			}
			return fmt.Errorf("%s: %d issue(s)", args[0], len(issues))
		},
	}
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <share-code>",
		Short: "Print the request a share code reproduces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := seed.DecodeShareCode(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTONES")
			for _, c := range catalog.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, strings.Join(c.ToneTags, ", "))
			}
			return tw.Flush()
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (file, defaults and environment overlay)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if _, err := a.out.Write(b); err != nil {
				return err
			}
			env := cfg.APIKeyEnv(cfg.LLM.Provider)
			if env == "" {
				return nil
			}
			state := "unset"
			if v, ok := a.lookup(env); ok && strings.TrimSpace(v) != "" {
				state = "set"
			}
			fmt.Fprintf(a.out, "# %s: %s\n", env, state)
			return nil
		},
	}
}
