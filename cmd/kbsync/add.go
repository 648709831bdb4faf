package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync/pkg/core"
)

var (
	addDevice   string
	addID       string
	addTitle    string
	addContent  string
	addCategory string
	addTags     []string
	addPriority int
	addStatus   string
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a knowledge record to a device",
	Long:  `Create a record owned by a device and write it to <vault>/<device>/<id>.md.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if addDevice == "" || addID == "" {
			fmt.Fprintln(os.Stderr, "Error: --device and --id are required")
			_ = cmd.Usage()
			os.Exit(1)
		}

		ctx := context.Background()
		engine, err := openEngine(ctx)
		if err != nil {
			fatal("Failed to open vault", err)
		}

		content := addContent
		if content == "-" {
			data, err := readStdin()
			if err != nil {
				fatal("Failed to read content", err)
			}
			content = data
		}

		now := time.Now().UTC().Truncate(time.Second)
		r := core.Record{
			ID:           addID,
			Title:        addTitle,
			Content:      content,
			Category:     core.Category(addCategory),
			OriginDevice: addDevice,
			CreatedAt:    now,
			UpdatedAt:    now,
			Tags:         addTags,
			Priority:     addPriority,
			Status:       core.Status(addStatus),
		}
		if err := engine.AddRecord(ctx, r); err != nil {
			fatal("Failed to add record", err)
		}

		fmt.Printf("Record '%s' added to %s.\n", addID, addDevice)
	},
}

func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addDevice, "device", "d", "", "Owning device ID")
	addCmd.Flags().StringVar(&addID, "id", "", "Record ID (deduplication key)")
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Title")
	addCmd.Flags().StringVarP(&addContent, "content", "c", "", "Body; '-' reads stdin")
	addCmd.Flags().StringVar(&addCategory, "category", string(core.CategoryRule), "Category (rule, issue, document, implementation)")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
	addCmd.Flags().IntVarP(&addPriority, "priority", "p", 3, "Priority from 1 to 5")
	addCmd.Flags().StringVar(&addStatus, "status", string(core.StatusActive), "Status (draft, active, archived)")
}
