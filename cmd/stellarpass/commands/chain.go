package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarpass/stellarpass/internal/contract"
	"github.com/stellarpass/stellarpass/internal/payments"
)

func (c *cli) chainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Call the StellarPass contract",
	}
	cmd.AddCommand(
		c.chainRegisterCmd(),
		c.chainPayCmd(),
		c.chainTipCmd(),
		c.chainToggleCmd(),
		c.chainUserCmd(),
		c.chainTipLinkCmd(),
		c.chainPaymentsCmd(),
		c.chainStatsCmd(),
	)
	return cmd
}

func (c *cli) chainRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the signed-in user and wallet address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			receipt, err := c.core.Payments.Register(cmd.Context())
			if err != nil {
				return err
			}
			return printReceipt(cmd, receipt)
		},
	}
}

func (c *cli) chainPayCmd() *cobra.Command {
	var memo, category string
	cmd := &cobra.Command{
		Use:   "pay [recipient] [amount]",
		Short: "Send a payment through the contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receipt, err := c.core.Payments.Pay(cmd.Context(), payments.PayInput{
				To:       args[0],
				Amount:   args[1],
				Memo:     memo,
				Category: category,
			})
			if err != nil {
				return err
			}
			return printReceipt(cmd, receipt)
		},
	}
	cmd.Flags().StringVar(&memo, "memo", "", "memo, at most 140 characters")
	cmd.Flags().StringVar(&category, "category", string(contract.PaymentTransfer), "Transfer, Tip, Reward or Gift")
	return cmd
}

func (c *cli) chainTipCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "tip [username] [amount]",
		Short: "Tip a registered user through their tip link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receipt, err := c.core.Payments.Tip(cmd.Context(), payments.TipInput{
				Username: args[0],
				Amount:   args[1],
				Message:  message,
			})
			if err != nil {
				return err
			}
			return printReceipt(cmd, receipt)
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "message, at most 140 characters")
	return cmd
}

func (c *cli) chainToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-tiplink",
		Short: "Enable or disable your tip link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			receipt, err := c.core.Payments.ToggleTipLink(cmd.Context())
			if err != nil {
				return err
			}
			return printReceipt(cmd, receipt)
		},
	}
}

func (c *cli) chainUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user [username]",
		Short: "Look up a registered user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, ok, err := c.core.Payments.User(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %q is not registered", args[0])
			}
			return printJSON(cmd, user)
		},
	}
}

func (c *cli) chainTipLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tiplink-info [username]",
		Short: "Show tip link statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok, err := c.core.Payments.TipLink(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no tip link for %q", args[0])
			}
			return printJSON(cmd, info)
		},
	}
}

func (c *cli) chainPaymentsCmd() *cobra.Command {
	var limit uint32
	cmd := &cobra.Command{
		Use:   "payments [address]",
		Short: "List payments of an address (default: your wallet)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) == 1 {
				address = args[0]
			}
			list, err := c.core.Payments.Payments(cmd.Context(), address, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}
	cmd.Flags().Uint32Var(&limit, "limit", contract.DefaultPaymentsLimit, "maximum number of payments")
	return cmd
}

func (c *cli) chainStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show contract-wide statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.core.Payments.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stats.String())
			return nil
		},
	}
}

func printReceipt(cmd *cobra.Command, r contract.Receipt) error {
	fmt.Fprintf(cmd.OutOrStdout(), "hash:   %s\nstatus: %s\nledger: %d\n", r.Hash, r.Status, r.LatestLedger)
	if r.ErrorResultXDR != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "error:  %s\n", r.ErrorResultXDR)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
