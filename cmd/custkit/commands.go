package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custkit/custkit/persona"
)

// recommendCmd 是一次性推荐命令：装配引擎、打分、JSON 输出，不经过 HTTP 层。
var recommendCmd = &cobra.Command{
	Use:   "recommend <user-id>",
	Short: "Produce recommendations for one user as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]
		k, _ := cmd.Flags().GetInt("k")

		app, _, err := newApp(cmd)
		if err != nil {
			return err
		}

		recs, err := app.Engine.Recommend(userID, k)
		if err != nil {
			return fmt.Errorf("recommend: %w", err)
		}

		type row struct {
			ItemID   string  `json:"item_id"`
			ItemName string  `json:"item_name"`
			Category string  `json:"category"`
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback"`
		}
		out := struct {
			UserID          string `json:"user_id"`
			Recommendations []row  `json:"recommendations"`
		}{UserID: userID, Recommendations: make([]row, 0, len(recs))}

		ctx := context.Background()
		for _, rec := range recs {
			out.Recommendations = append(out.Recommendations, row{
				ItemID:   rec.ItemID,
				ItemName: rec.ItemName,
				Category: rec.Category,
				Score:    rec.Score,
				Feedback: app.Narrator.Narrate(ctx, userID, rec),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// analyzeCmd 是一次性画像命令：指标折算 + 规则匹配 + 预测分，JSON 输出。
var analyzeCmd = &cobra.Command{
	Use:   "analyze <user-id>",
	Short: "Analyze one user's behaviour profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]

		app, _, err := newApp(cmd)
		if err != nil {
			return err
		}

		metrics := persona.ComputeMetrics(userID, app.Engine.UserEvents(userID), time.Now())
		analysis := app.Evaluator.Analyze(metrics)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	recommendCmd.Flags().Int("k", 5, "number of recommendations")
}
