package cmd

import (
	"context"
	"path/filepath"

	"vmforge/internal/image"
	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultImageURL matches the libvirt backend's base image default.
const defaultImageURL = "https://cloud-images.ubuntu.com/noble/current/noble-server-cloudimg-amd64.img"

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Prefetch the base VM image into the local cache",
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg := newLab()

		url := cfg.Libvirt.ImageURL
		if url == "" {
			url = defaultImageURL
		}
		cacheDir := cfg.Libvirt.ImageCacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(cfg.Engine.Dir, ".vmforge", "images")
		}

		path, err := image.NewFetcher(cacheDir).Fetch(context.Background(), url)
		if err != nil {
			logging.Logger().Fatal("image prefetch failed",
				zap.String("url", url),
				zap.Error(err))
		}
		logging.Logger().Info("base image ready",
			zap.String("url", url),
			zap.String("path", path))
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
}
