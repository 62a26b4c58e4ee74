package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glowcli/internal/license"
)

func generateCmd() *cobra.Command {
	var (
		installID string
		publicKey string
		validity  time.Duration
		outFile   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Issue a signed license for an installation",
		Long: `Issue a signed premium license for an installation.

The install id and public key come from the user's Account page, which
shows the exact values this command expects. Pass the public key inline
or as @path to read it from a file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadSigningKey(keyFile)
			if err != nil {
				return err
			}

			jwk := publicKey
			if strings.HasPrefix(jwk, "@") {
				data, err := os.ReadFile(jwk[1:])
				if err != nil {
					return fmt.Errorf("reading public key file: %w", err)
				}
				jwk = strings.TrimSpace(string(data))
			}

			issuer := license.NewIssuer(key).WithValidity(validity)
			artifact, err := issuer.GenerateLicense(installID, jwk)
			if err != nil {
				return fmt.Errorf("issuing license: %w", err)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(artifact+"\n"), 0644); err != nil {
					return fmt.Errorf("writing license file: %w", err)
				}
				fmt.Printf("License written to %s\n", outFile)
				return nil
			}

			fmt.Println(artifact)
			return nil
		},
	}

	cmd.Flags().StringVar(&installID, "install-id", "", "installation id from the user's Account page")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "installation public key JWK, or @file")
	cmd.Flags().DurationVar(&validity, "validity", license.DefaultValidity, "license validity period")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the license to a file instead of stdout")
	cmd.MarkFlagRequired("install-id")
	cmd.MarkFlagRequired("public-key")

	return cmd
}
