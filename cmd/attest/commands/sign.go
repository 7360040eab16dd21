package commands

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/spf13/cobra"
)

var keyFile string

func addKeyFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&keyFile, "key", defaultPrivateKeyFile, "File containing the private key")
}

func readKey() (*ecdsa.PrivateKey, error) {
	key, err := keys.NewSimpleKeyfile(keyFile).ReadKey()
	if err != nil {
		return nil, fmt.Errorf("Reading private key: %s", err)
	}
	return key, nil
}

// NewSignCmd produces a command that signs a text the way messages are signed
// for the registry.
func NewSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [text]",
		Short: "Sign a text with the personal-sign scheme",
		Args:  cobra.ExactArgs(1),
		RunE:  sign,
	}
	addKeyFlag(cmd)
	return cmd
}

func sign(cmd *cobra.Command, args []string) error {
	key, err := readKey()
	if err != nil {
		return err
	}

	sig, err := keys.SignText(key, args[0])
	if err != nil {
		return err
	}

	fmt.Println(common.EncodeToString(sig))
	return nil
}

// NewRecoverCmd produces a command that prints the signer of a text.
func NewRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover [text] [signature]",
		Short: "Recover the address that signed a text",
		Args:  cobra.ExactArgs(2),
		RunE:  recoverSigner,
	}
}

func recoverSigner(cmd *cobra.Command, args []string) error {
	sig, err := common.DecodeFromString(args[1])
	if err != nil {
		return fmt.Errorf("Decoding signature: %s", err)
	}

	signer, err := keys.RecoverText(args[0], sig)
	if err != nil {
		return err
	}

	fmt.Println(signer.Hex())
	return nil
}
