// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/jsdocclosure/cmd/jsdoc-closure/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init [path]",
			Short: "Write the default configuration (default ./" + config.FileName + ")",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := config.FileName
				if len(args) == 1 {
					path = args[0]
				}
				if err := config.WriteDefault(path); err != nil {
					return err
				}
				a.out.Success("wrote " + path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return err
				}
				source := a.cfgPath
				if source == "" {
					source = "built-in defaults"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", source, data)
				return nil
			},
		},
	)
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(a.cfg, a.logger.Slog())
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Purge(); err != nil {
				return err
			}
			a.out.Success("cache purged")
			return nil
		},
	})
	return cmd
}
