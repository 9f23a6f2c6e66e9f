package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stellarpass/stellarpass/internal/wallet"
)

func (c *cli) walletCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Show balance and recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if refresh {
				if err := c.core.Wallet.Refresh(cmd.Context()); err != nil {
					return err
				}
			}
			snap := c.core.Wallet.Snapshot(cmd.Context())
			if snap.PublicKey == "" {
				return wallet.ErrNotInitialized
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "balance: %s XLM\n", snap.Balance)
			fmt.Fprintf(out, "address: %s\n", snap.PublicKey)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tAMOUNT\tCOUNTERPARTY\tWHEN\tSTATUS")
			for _, tx := range snap.Transactions {
				party := tx.To
				if tx.Type == wallet.TxReceive {
					party = tx.From
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.Type, tx.Amount, party, tx.Timestamp.Format(time.RFC3339), tx.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh the balance first")
	return cmd
}

func (c *cli) sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [destination] [amount]",
		Short: "Send XLM from the wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := c.core.Wallet.SendPayment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s XLM to %s (%s)\nbalance: %s XLM\n",
				tx.Amount, tx.To, tx.ID, c.core.Wallet.Balance(cmd.Context()))
			return nil
		},
	}
}

func (c *cli) receiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "receive",
		Short: "Show the address and tip link to share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := c.core.Wallet.Receive()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address:  %s\ntip link: %s\n", info.Address, info.TipLink)
			return nil
		},
	}
}

func (c *cli) tiplinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiplink",
		Short: "Print your tip link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			link := c.core.Wallet.TipLink()
			if link == "" {
				return wallet.ErrNotInitialized
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

func (c *cli) tipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tip [username] [amount]",
		Short: "Tip a StellarPass user from the wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := c.core.Wallet.Tip(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully tipped %s XLM!\n", tx.Amount)
			return nil
		},
	}
}
