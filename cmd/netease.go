package cmd

import (
	"context"
	"fmt"
	"time"

	"LiveFM/core/acquire"
	"LiveFM/core/netease"

	"github.com/spf13/cobra"
)

var neteaseCmd = &cobra.Command{
	Use:   "netease <song-id>",
	Short: "Show the streams the NetEase API offers for a song",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		client := netease.NewClient(cfg.NeteaseAPIURL)
		client.SetLevels(cfg.NeteaseLevel, "standard", "higher", "lossless")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if song, err := client.GetSongDetail(ctx, id); err != nil {
			fmt.Printf("Song detail unavailable: %v\n", err)
		} else if song != nil {
			fmt.Printf("%s (%s)\n", song.DisplayTitle(), song.Length())
		}

		streams, err := netease.NewSource(client).Streams(ctx, id)
		if err != nil {
			return err
		}
		for i, s := range streams {
			fmt.Printf("%d. %s %d bps %s\n   %s\n", i+1, s.ID, s.Bitrate, s.Container, s.URL)
		}
		if best, ok := acquire.SelectBest(streams); ok {
			fmt.Printf("\nSelected: %s (%d bps)\n", best.ID, best.Bitrate)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(neteaseCmd)
}
