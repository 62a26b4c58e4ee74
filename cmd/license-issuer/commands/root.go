package commands

import (
	"github.com/spf13/cobra"
)

var keyFile string

func Execute() error {
	root := &cobra.Command{
		Use:   "license-issuer",
		Short: "Administrative console for issuing GlowSuite licenses",
		Long: `Administrative console for issuing GlowSuite premium licenses.

The signing key created by "keygen" must stay on the administrator's
machine. Only the derived public key is embedded in the application.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&keyFile, "key", "k", "issuer_key.pem", "issuer signing key file")

	root.AddCommand(keygenCmd(), generateCmd(), pubkeyCmd())
	return root.Execute()
}
