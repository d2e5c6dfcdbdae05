package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"forge/internal/vocab"
)

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%-24s %d\n", k, stats[k])
	}
	return nil
}

func runVocab(cmd *cobra.Command, args []string) {
	fmt.Printf("artifact types:   %s\n", names(vocab.AllArtifactTypes()))
	fmt.Printf("artifact scopes:  %s\n", names(vocab.AllArtifactScopes()))
	fmt.Printf("edge relations:   %s\n", names(vocab.AllEdgeRelations()))
	fmt.Printf("memory types:     %s\n", names(vocab.AllMemoryTypes()))
	fmt.Printf("struggle themes:  %s\n", names(vocab.AllStruggleThemes()))
	fmt.Printf("faith stages:     %s\n", names(vocab.AllFaithStages()))
	fmt.Printf("note categories:  %s\n", names(vocab.AllNoteCategories()))
	fmt.Printf("intents:          %s\n", names(vocab.AllIntents()))
	fmt.Printf("response modes:   %s\n", names(vocab.AllResponseModes()))
	fmt.Printf("question types:   %s\n", names(vocab.AllQuestionTypes()))
}

func names[T ~string](vals []T) string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}
