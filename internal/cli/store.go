package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/frontdesk/internal/vectorstore"
)

func init() {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the vector store",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import embeddings from JSON",
		Long:  `Import a {"embeddings": [[...]], "texts": [...]} blob (stdin or --file), replacing the named store.`,
		Run:   runStoreImport,
	}
	importCmd.Flags().String("file", "", "Read from file instead of stdin")
	importCmd.Flags().StringP("name", "n", "", "Store name (default: vector_store.name)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record count and dimension",
		Run:   runStoreStats,
	}
	statsCmd.Flags().StringP("name", "n", "", "Store name (default: vector_store.name)")

	storeCmd.AddCommand(importCmd, statsCmd)
	RootCmd.AddCommand(storeCmd)
}

func runStoreImport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	name, _ := cmd.Flags().GetString("name")
	cfg := mustConfig()
	if name == "" {
		name = cfg.VectorStore.Name
	}

	var (
		data []byte
		err  error
	)
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	records, err := vectorstore.DecodeBlob(data)
	if err != nil {
		exitErr("parse input", err)
	}

	s, err := vectorstore.Open(cfg.VectorStore)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Import(cmd.Context(), name, records); err != nil {
		exitErr("import", err)
	}

	fmt.Printf(`{"ok":true,"store":%q,"imported":%d}`+"\n", name, len(records))
}

func runStoreStats(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	cfg := mustConfig()
	if name == "" {
		name = cfg.VectorStore.Name
	}

	s, err := vectorstore.Open(cfg.VectorStore)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := vectorstore.StatsFor(cmd.Context(), s, name)
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(st)
}
