package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"pumpcore/internal/creation"
)

var (
	createName        string
	createTicker      string
	createK           string
	createDescription string
	createImage       string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Launch a new token",
	Long:  "Validate the token form, pin the image if one is given and submit createToken with the initial deposit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		form := a.CreationForm()
		form.Name = createName
		form.SetTicker(createTicker)
		form.K = createK
		form.Description = createDescription

		if createImage != "" {
			content, err := os.ReadFile(createImage)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			if !form.SetImage(filepath.Base(createImage), content) {
				return errors.New(form.Errors[creation.FieldImage])
			}
		}

		hash, err := form.Submit(cmd.Context())
		if err != nil {
			printFormErrors(cmd, form.Errors)
			return err
		}

		out := cmd.OutOrStdout()
		if form.ImageCID != "" {
			fmt.Fprintf(out, "image pinned: %s\n", form.ImageCID)
		}
		fmt.Fprintf(out, "createToken submitted: %s\n", hash.Hex())
		return nil
	},
}

func printFormErrors(cmd *cobra.Command, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", field, errs[field])
	}
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Coin name")
	createCmd.Flags().StringVar(&createTicker, "ticker", "", "Ticker symbol")
	createCmd.Flags().StringVar(&createK, "k", creation.DefaultK, "Bonding curve constant (1-1000)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Optional description")
	createCmd.Flags().StringVar(&createImage, "image", "", "Optional image file (max 5MB)")
}
