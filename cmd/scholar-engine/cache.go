// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholar-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the response cache",
	Long: `Cache manages the persisted answer cache. Entries are keyed by a
fingerprint of the normalized question; list shows them, invalidate removes
one, and clear removes everything.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(pipelineConfig().Cache)
		if err != nil {
			return err
		}

		entries := store.Entries()
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		})

		for _, e := range entries {
			fmt.Printf("%s  %s  %q\n",
				e.Fingerprint[:12], e.CreatedAt.Format("2006-01-02 15:04"), e.Question)
		}
		fmt.Printf("\n%d entries\n", len(entries))
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Remove one cached answer by question or fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		question, _ := cmd.Flags().GetString("question")
		fingerprint, _ := cmd.Flags().GetString("fingerprint")
		if question == "" && fingerprint == "" {
			return fmt.Errorf("provide --question or --fingerprint")
		}
		if fingerprint == "" {
			fingerprint = cache.Fingerprint(question)
		}

		store, err := cache.Open(pipelineConfig().Cache)
		if err != nil {
			return err
		}
		if err := store.Invalidate(fingerprint); err != nil {
			return err
		}
		fmt.Printf("invalidated %s\n", fingerprint)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cache.Open(pipelineConfig().Cache)
		if err != nil {
			return err
		}
		n := store.Len()
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("cleared %d entries\n", n)
		return nil
	},
}

func init() {
	cacheInvalidateCmd.Flags().String("question", "", "question text to invalidate")
	cacheInvalidateCmd.Flags().String("fingerprint", "", "exact fingerprint to invalidate")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
