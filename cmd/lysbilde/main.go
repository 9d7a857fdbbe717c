// Command lysbilde builds a static photo gallery site from a directory tree
// of photos, a site.toml, and a theme.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/lysbilde/lysbilde/pkg/lysbilde"
)

var (
	siteDir    string
	configPath string
	themeName  string
	sourceMaps bool
)

var rootCmd = &cobra.Command{
	Use:          "lysbilde",
	Short:        "Static photo gallery generator",
	Long:         "lysbilde turns a directory tree of photos into a static gallery site\nwith resized WebP variants, per-photo pages, and incremental rebuilds.",
	Version:      lysbilde.Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return buildCmd.RunE(cmd, args)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return lysbilde.DoBuild(siteDir, configPath, themeName, sourceMaps)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build the site and rebuild on changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := lysbilde.Watch(ctx, lysbilde.WatchOptions{
			SiteDir:       siteDir,
			ConfigPath:    configPath,
			ThemeOverride: themeName,
			Debounce:      debounce,
			SourceMaps:    sourceMaps,
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the site and serve it over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		noWatch, _ := cmd.Flags().GetBool("no-watch")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		cfg := configPath
		if cfg == "" {
			cfg = filepath.Join(siteDir, "site.toml")
		}
		site, err := lysbilde.LoadSite(cfg)
		if err != nil {
			return err
		}
		outputDir := filepath.Join(siteDir, site.Build)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if noWatch {
			if err := lysbilde.DoBuild(siteDir, configPath, themeName, sourceMaps); err != nil {
				return err
			}
		} else {
			go func() {
				err := lysbilde.Watch(ctx, lysbilde.WatchOptions{
					SiteDir:       siteDir,
					ConfigPath:    configPath,
					ThemeOverride: themeName,
					Debounce:      debounce,
					SourceMaps:    sourceMaps,
				})
				if err != nil && ctx.Err() == nil {
					klog.Errorf("watch: %v", err)
				}
			}()
		}

		srv := &http.Server{Addr: addr, Handler: http.FileServer(http.Dir(outputDir))}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()

		klog.Infof("serving %s on http://%s", outputDir, addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configPath
		if cfg == "" {
			cfg = filepath.Join(siteDir, "site.toml")
		}
		site, err := lysbilde.LoadSite(cfg)
		if err != nil {
			return err
		}
		outputDir := filepath.Join(siteDir, site.Build)
		klog.Infof("removing %s", outputDir)
		return os.RemoveAll(outputDir)
	},
}

func main() {
	klog.InitFlags(nil)
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVarP(&siteDir, "directory", "C", ".", "site directory containing site.toml and the photo tree")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is site.toml in the site directory)")
	rootCmd.PersistentFlags().StringVar(&themeName, "theme", "", "override the configured theme")
	rootCmd.PersistentFlags().BoolVar(&sourceMaps, "source-maps", false, "copy source maps and disable minification")

	watchCmd.Flags().Duration("debounce", 2*time.Second, "delay after the last change before rebuilding")
	serveCmd.Flags().String("addr", "localhost:8000", "host:port to serve on")
	serveCmd.Flags().Bool("no-watch", false, "build once instead of rebuilding on changes")
	serveCmd.Flags().Duration("debounce", 2*time.Second, "delay after the last change before rebuilding")

	rootCmd.AddCommand(buildCmd, watchCmd, serveCmd, cleanCmd)

	if err := rootCmd.Execute(); err != nil {
		klog.Exitf("%v", err)
	}
}
