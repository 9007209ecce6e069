// internal/commands/index.go
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChenJellay/helix/internal/rag"
)

var (
	indexProject string
	indexDocID   string
	indexDocType string
	indexTitle   string
)

// indexCmd ingests one document file into the vector store and entity graph.
var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Index a document for retrieval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}

		docID := indexDocID
		if docID == "" {
			docID = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		title := indexTitle
		if title == "" {
			title = docID
		}

		ctx := cmd.Context()
		c, err := buildClients(ctx, GetConfig())
		if err != nil {
			return err
		}
		defer c.close()

		result, err := c.indexer().IndexDocument(ctx, rag.DocumentInput{
			ProjectID: indexProject,
			DocID:     docID,
			DocType:   indexDocType,
			Title:     title,
			Text:      string(data),
		})
		if err != nil {
			return err
		}

		color.New(color.FgGreen).Printf("Indexed %s (run %s)\n", docID, result.RunID)
		fmt.Printf("  chunks: %d\n  entities: %d\n", result.Chunks, result.Entities)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexProject, "project", "", "project the document belongs to (required)")
	indexCmd.Flags().StringVar(&indexDocID, "doc-id", "", "document id (defaults to the file name)")
	indexCmd.Flags().StringVar(&indexDocType, "type", "prd", "document type (prd, technical_design, ...)")
	indexCmd.Flags().StringVar(&indexTitle, "title", "", "document title (defaults to the doc id)")
	_ = indexCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(indexCmd)
}
