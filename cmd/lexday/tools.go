package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/acoeffic/readon/internal/badge"
	"github.com/acoeffic/readon/internal/kindle"
	"github.com/acoeffic/readon/internal/widget"
)

var (
	badgeForce bool

	kindleUserDataDir string
	kindleOut         string
	kindleImportUser  string
	kindleCreds       kindle.Credentials

	widgetSize     string
	widgetDefaults string
	widgetUser     string
	widgetOut      string
)

var badgeCmd = &cobra.Command{
	Use:   "badge <user> <badge>",
	Short: "Render and upload a badge card, printing its URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		bucket, err := openBucket()
		if err != nil {
			return err
		}
		reg := newFonts()
		_ = reg.Load(ctx, nil)

		url, err := badge.NewGenerator(st, bucket, reg, logger).Card(ctx, args[0], args[1], badgeForce)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

var kindleCmd = &cobra.Command{
	Use:   "kindle",
	Short: "Kindle highlights and library imports",
}

var kindleScrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the Kindle notebook in a browser",
	Long: `Opens the notebook page in Chrome, walks the library and collects each
book's highlights. Point --user-data-dir at a profile already signed in to
Amazon. With --user the result is imported straight into the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		kc := cfg.Kindle
		if kindleUserDataDir != "" {
			kc.UserDataDir = kindleUserDataDir
		}
		resp := kindle.HandleMessage(ctx, kindle.NewRodScraper(kc, logger), kindle.Message{Action: kindle.ActionScrape})
		if !resp.Success {
			return errors.New(resp.Error)
		}

		out := cmd.OutOrStdout()
		if kindleOut != "" {
			f, err := os.Create(kindleOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp.Data); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "[*] %d book(s), %d highlight(s)\n", len(resp.Data.Books), resp.Data.TotalHighlights)

		if kindleImportUser == "" {
			return nil
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		res, err := kindle.NewSyncService(st, logger).Import(ctx, kindleImportUser, *resp.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "[*] Imported %d book(s), %d new highlight(s)\n", res.Books, res.Highlights)
		return nil
	},
}

var kindleSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the Kindle cloud library onto a user's shelf",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		n, err := kindle.NewSyncService(st, logger).Sync(ctx, kindleCreds)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d\n", n)
		return nil
	},
}

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Render the home-screen widget to PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var defaults widget.Defaults = widget.FileDefaults(cfg.Widget.DefaultsPath)
		if widgetDefaults != "" {
			defaults = widget.FileDefaults(widgetDefaults)
		}
		if widgetUser != "" {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			defaults = widget.StoreDefaults{Store: st, UserID: widgetUser}
		}

		now := time.Now()
		tl, err := widget.Provider{Defaults: defaults}.Timeline(ctx, now)
		if err != nil {
			return err
		}
		reg := newFonts()
		_ = reg.Load(ctx, nil)
		data, err := widget.PNG(reg, widget.Size(widgetSize), tl.Entries[0])
		if err != nil {
			return err
		}
		out := widgetOut
		if out == "" {
			out = fmt.Sprintf("widget-%s.png", widgetSize)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("[*] Widget written: %s (next update %s)\n", out, tl.NextUpdate.Format(time.Kitchen))
		return nil
	},
}

func init() {
	badgeCmd.Flags().BoolVar(&badgeForce, "force", false, "Render again even when the card is cached")

	kindleScrapeCmd.Flags().StringVar(&kindleUserDataDir, "user-data-dir", "", "Chrome profile directory")
	kindleScrapeCmd.Flags().StringVarP(&kindleOut, "out", "o", "", "Write the JSON result here instead of stdout")
	kindleScrapeCmd.Flags().StringVar(&kindleImportUser, "user", "", "Import the result for this user")
	kindleSyncCmd.Flags().StringVar(&kindleCreds.Email, "email", "", "Amazon account email")
	kindleSyncCmd.Flags().StringVar(&kindleCreds.Password, "password", "", "Amazon account password")
	kindleSyncCmd.Flags().StringVar(&kindleCreds.UserID, "user", "", "LexDay user id")
	kindleCmd.AddCommand(kindleScrapeCmd, kindleSyncCmd)

	widgetCmd.Flags().StringVar(&widgetSize, "size", string(widget.SizeSmall), "small or medium")
	widgetCmd.Flags().StringVar(&widgetDefaults, "defaults", "", "YAML or JSON key-value file (default from config)")
	widgetCmd.Flags().StringVar(&widgetUser, "user", "", "Read the values from this user's reading state")
	widgetCmd.Flags().StringVarP(&widgetOut, "out", "o", "", "Output PNG")
}
