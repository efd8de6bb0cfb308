package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"LiveFM/core/audio"
	"LiveFM/core/broadcast"

	"github.com/spf13/cobra"
)

var silenceForce bool

var silenceCmd = &cobra.Command{
	Use:   "silence",
	Short: "Generate the fallback silence track",
	Long:  `Render the silent mp3 that closes every playlist so the encoder never runs out of input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		encoder, err := broadcast.LocateEncoder(cfg.FFmpegPath, cfg.FFmpegSearchDirs)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SilencePath), 0755); err != nil {
			return err
		}

		processor := audio.NewFFmpegProcessor(encoder, cfg.FFprobePath)
		err = processor.GenerateSilence(context.Background(), cfg.SilencePath, audio.SilenceOptions{
			Seconds:    cfg.SilenceSeconds,
			SampleRate: cfg.AudioSampleRate,
			Bitrate:    cfg.AudioBitrate,
		}, silenceForce)
		if err != nil {
			return err
		}
		fmt.Printf("Silence track ready: %s (%ds)\n", cfg.SilencePath, cfg.SilenceSeconds)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(silenceCmd)
	silenceCmd.Flags().BoolVarP(&silenceForce, "force", "f", false, "overwrite an existing silence file")
}
