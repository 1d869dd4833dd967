package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"smarthika/internal/blob"
	"smarthika/internal/geo"
	"smarthika/internal/location"
)

func newStatesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List states from the location source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			svc := location.NewService(cfg.LocationSourceURL,
				location.WithTimeout(cfg.LocationTimeout), location.WithLogger(logger))
			for _, state := range svc.FetchStates(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), state)
			}
			return nil
		},
	}
}

func newDistrictsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "districts <state>",
		Short: "List the districts of a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			svc := location.NewService(cfg.LocationSourceURL,
				location.WithTimeout(cfg.LocationTimeout), location.WithLogger(logger))
			for _, district := range svc.FetchDistricts(cmd.Context(), args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), district)
			}
			return nil
		},
	}
}

func newRegionsCmd(opts *rootOptions) *cobra.Command {
	var selected, topology string
	cmd := &cobra.Command{
		Use:   "regions <country>",
		Short: "List map regions, marking the selected one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var regions []geo.Region
			if topology != "" {
				raw, err := os.ReadFile(topology)
				if err != nil {
					return err
				}
				if regions, err = geo.Decode(raw); err != nil {
					return err
				}
			} else {
				cfg, logger, err := opts.load()
				if err != nil {
					return err
				}
				store, err := blob.Open(cmd.Context(), cfg.Blob)
				if err != nil {
					return err
				}
				atlas := geo.NewAtlas(store, geo.WithLoadTimeout(cfg.MapLoadTimeout), geo.WithAtlasLogger(logger))
				if regions, err = atlas.Regions(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			for _, view := range geo.Highlight(regions, selected) {
				mark := " "
				if view.Selected {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, view.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&selected, "selected", "", "region to highlight")
	cmd.Flags().StringVar(&topology, "topology", "", "read boundaries from a local TopoJSON/GeoJSON file instead of blob storage")
	return cmd
}

func newMapsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maps",
		Short: "Manage map boundary assets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "put <country> <file>",
		Short: "Upload a boundary file after checking it decodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			store, err := blob.Open(cmd.Context(), cfg.Blob)
			if err != nil {
				return err
			}
			info, err := geo.NewAtlas(store, geo.WithAtlasLogger(logger)).Put(cmd.Context(), args[0], raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes, etag %s)\n", info.Key, info.Size, strings.Trim(info.ETag, `"`))
			return nil
		},
	})
	return cmd
}
