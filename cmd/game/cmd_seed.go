package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"novel-game/internal/config"
	"novel-game/internal/content"
	"novel-game/internal/logger"
)

func init() {
	seedCmd.Flags().StringP("content", "c", "", "game content document (overrides GAME_CONTENT_PATH)")
	seedCmd.Flags().Uint64("seed", 0, "random seed for content selection (0 picks a random one)")
	seedCmd.Flags().String("log-level", "warn", "log level for diagnostics written to stderr")
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Print the substituted initial transcript without contacting any service",
	RunE:  runSeed,
}

type seedOutput struct {
	Objective    string              `yaml:"objective"`
	Theme        string              `yaml:"theme"`
	WritingStyle string              `yaml:"writing_style"`
	ImageStyle   string              `yaml:"image_style"`
	Transcript   []seedOutputMessage `yaml:"transcript"`
}

type seedOutputMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

func runSeed(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	log, err := logger.New(logger.CLI(level))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gameCfg, err := config.LoadGame()
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("content")
	if path == "" {
		path = gameCfg.ContentPath
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	if seed == 0 {
		seed = rand.Uint64()
	}

	doc, err := content.Load(path)
	if err != nil {
		return err
	}
	setup := doc.NewSetup(rand.New(rand.NewPCG(seed, seed)))
	log.Info("Content selected",
		zap.String("content_path", path),
		zap.Uint64("seed", seed),
		zap.String("objective", setup.Objective),
		zap.String("theme", setup.Theme),
	)

	out := seedOutput{
		Objective:    setup.Objective,
		Theme:        setup.Theme,
		WritingStyle: setup.WritingStyle,
		ImageStyle:   setup.ImageStyle,
	}
	for _, m := range setup.Seed(gameCfg.SystemPrompt) {
		out.Transcript = append(out.Transcript, seedOutputMessage{Role: m.Role, Content: m.Content})
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode seed: %w", err)
	}
	return enc.Close()
}
