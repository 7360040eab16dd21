package commands

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/tx"
	"github.com/spf13/cobra"
)

var (
	txNonce   uint64
	txSubmit  string
	txAgainst bool
)

// NewTxCmd produces the tx command and its subcommands, which build and sign
// transactions, and optionally submit them to a node.
func NewTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Build, sign and submit transactions",
	}

	cmd.PersistentFlags().StringVar(&keyFile, "key", defaultPrivateKeyFile, "File containing the private key")
	cmd.PersistentFlags().Uint64Var(&txNonce, "nonce", uint64(time.Now().UnixNano()), "Nonce making the transaction unique")
	cmd.PersistentFlags().StringVar(&txSubmit, "submit", "", "Address of a node's HTTP service. Prints the transaction when empty")

	voteCmd := &cobra.Command{
		Use:   "vote [message-id]",
		Short: "Vote on a message",
		Args:  cobra.ExactArgs(1),
		RunE:  voteTx,
	}
	voteCmd.Flags().BoolVar(&txAgainst, "against", false, "Vote against the message")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "store [text]",
			Short: "Store a message signed with the key",
			Args:  cobra.ExactArgs(1),
			RunE:  storeTx,
		},
		voteCmd,
		&cobra.Command{
			Use:   "open [true|false]",
			Short: "Open or close the registry (owner only)",
			Args:  cobra.ExactArgs(1),
			RunE:  openTx,
		},
	)

	return cmd
}

func storeTx(cmd *cobra.Command, args []string) error {
	key, err := readKey()
	if err != nil {
		return err
	}

	sig, err := keys.SignText(key, args[0])
	if err != nil {
		return err
	}

	return signAndSend(tx.NewStore(args[0], sig, txNonce))
}

func voteTx(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("Invalid message id: %s", err)
	}
	return signAndSend(tx.NewVote(id, !txAgainst, txNonce))
}

func openTx(cmd *cobra.Command, args []string) error {
	open, err := strconv.ParseBool(args[0])
	if err != nil {
		return fmt.Errorf("Invalid open flag: %s", err)
	}
	return signAndSend(tx.NewSetOpen(open, txNonce))
}

func signAndSend(t *tx.Transaction) error {
	key, err := readKey()
	if err != nil {
		return err
	}

	if err := t.Sign(key); err != nil {
		return err
	}

	raw, err := t.Marshal()
	if err != nil {
		return err
	}

	if txSubmit == "" {
		fmt.Println(string(raw))
		return nil
	}

	url := txSubmit
	if !strings.HasPrefix(url, "http") {
		url = "http://" + url
	}

	resp, err := http.Post(url+"/tx", "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Println(strings.TrimSpace(string(body)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transaction not applied: %s", resp.Status)
	}
	return nil
}
