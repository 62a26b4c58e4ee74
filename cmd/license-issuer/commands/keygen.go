package commands

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new issuer signing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(keyFile); err == nil {
				return fmt.Errorf("refusing to overwrite existing key file %s", keyFile)
			}

			key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}

			der, err := x509.MarshalPKCS8PrivateKey(key)
			if err != nil {
				return fmt.Errorf("encoding private key: %w", err)
			}
			block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
			if err := os.WriteFile(keyFile, pem.EncodeToMemory(block), 0600); err != nil {
				return fmt.Errorf("writing key file: %w", err)
			}

			spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
			if err != nil {
				return fmt.Errorf("encoding public key: %w", err)
			}

			fmt.Printf("Signing key written to %s\n", keyFile)
			fmt.Printf("Verification key (embed in the application):\n%s\n",
				base64.StdEncoding.EncodeToString(spki))
			return nil
		},
	}
}

func pubkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey",
		Short: "Print the verification key for an existing signing key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadSigningKey(keyFile)
			if err != nil {
				return err
			}

			spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
			if err != nil {
				return fmt.Errorf("encoding public key: %w", err)
			}

			fmt.Println(base64.StdEncoding.EncodeToString(spki))
			return nil
		},
	}
}

// loadSigningKey reads a PEM-encoded PKCS#8 ECDSA P-256 private key
func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key in %s is not an ECDSA key", path)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("key in %s is not on curve P-256", path)
	}

	return key, nil
}
