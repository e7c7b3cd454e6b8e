package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"productmatcher/imageprocessor"
	"productmatcher/pipeline"
	"productmatcher/types"
	"productmatcher/utils"
)

var matchOpts struct {
	image     string
	threshold string
	count     string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find catalog products similar to a local image",
	Args:  cobra.NoArgs,
	RunE:  runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchOpts.image, "image", "", "query image (required)")
	f.StringVar(&matchOpts.threshold, "threshold", "", fmt.Sprintf("minimum similarity in [0,1] (default %.2f)", pipeline.MatchThreshold))
	f.StringVar(&matchOpts.count, "count", "", fmt.Sprintf("maximum results (default %d)", pipeline.MatchCount))
	_ = matchCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	threshold := pipeline.MatchThreshold
	if matchOpts.threshold != "" {
		parsed, err := utils.ParseThreshold(matchOpts.threshold)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		threshold = parsed
	}
	count := pipeline.MatchCount
	if matchOpts.count != "" {
		parsed, err := utils.ParseCount(matchOpts.count, pipeline.MatchCount)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		count = parsed
	}

	data, err := os.ReadFile(matchOpts.image)
	if err != nil {
		return fmt.Errorf("cannot read query image: %w", err)
	}

	matcher, cleanup, err := newMatcher(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	e, err := startEngineAndWait(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	startTime := time.Now()
	raw := types.RawImage{Data: data, Encoding: string(imageprocessor.GetFileFormat(matchOpts.image))}
	analysis, err := pipeline.New(nil, e, matcher).Analyze(ctx, raw)
	if err != nil {
		return err
	}

	matches, err := matcher.Match(ctx, types.MatchQuery{
		Embedding: analysis.Embedding,
		Colors:    analysis.Colors,
		Threshold: threshold,
		Count:     count,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Colors detected: %v\n", analysis.Colors)
	fmt.Println("\nTop Matches:")
	if len(matches) == 0 {
		fmt.Println("No matches found.")
	}
	for i, rec := range matches {
		printMatch(i+1, rec)
	}

	fmt.Printf("\nTotal search time: %v\n", time.Since(startTime))
	return nil
}

// printMatch prints the common fields of a catalog record, or the raw JSON
// when the record has a shape we do not know
func printMatch(rank int, rec json.RawMessage) {
	var m struct {
		ID         any      `json:"id"`
		Name       string   `json:"name"`
		ImagePath  string   `json:"image_path"`
		Similarity *float64 `json:"similarity"`
		Score      *float64 `json:"score"`
	}
	if err := json.Unmarshal(rec, &m); err != nil || m.Name == "" {
		fmt.Printf("%d. %s\n", rank, string(rec))
		return
	}

	fmt.Printf("%d. %s (id %v)\n", rank, m.Name, m.ID)
	if m.ImagePath != "" {
		fmt.Printf("   Image: %s\n", m.ImagePath)
	}
	if m.Similarity != nil {
		fmt.Printf("   Similarity: %.4f\n", *m.Similarity)
	}
	if m.Score != nil {
		fmt.Printf("   Score: %.4f\n", *m.Score)
	}
}
