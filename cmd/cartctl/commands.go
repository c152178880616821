package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/bakery-cart/internal/cart"
)

type opener func(ctx context.Context) (*cart.Service, error)

type cli struct {
	open    opener
	out     io.Writer
	in      io.Reader
	session string

	svc   *cart.Service
	store *cart.Store
}

type customizationFlags struct {
	size         string
	message      string
	instructions string
}

func (f *customizationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.size, "size", "", "size customization")
	cmd.Flags().StringVar(&f.message, "message", "", "message customization")
	cmd.Flags().StringVar(&f.instructions, "instructions", "", "special instructions")
}

func (f *customizationFlags) value() *cart.Customizations {
	return &cart.Customizations{Size: f.size, Message: f.message, SpecialInstructions: f.instructions}
}

func newRootCmd(open opener, out io.Writer, in io.Reader) *cobra.Command {
	c := &cli{open: open, out: out, in: in}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and edit bakery carts in the configured backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			store, err := svc.Store(c.session)
			if err != nil {
				_ = svc.Close()
				return err
			}
			c.svc, c.store = svc, store
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.svc == nil {
				return nil
			}
			return c.svc.Close()
		},
	}
	root.PersistentFlags().StringVarP(&c.session, "session", "s", "cli", "cart session id")

	root.AddCommand(
		c.showCmd(),
		c.summaryCmd(),
		c.addCmd(),
		c.updateCmd(),
		c.removeCmd(),
		c.clearCmd(),
		c.shippingCmd(),
		c.exportCmd(),
		c.importCmd(),
	)
	return root
}

func (c *cli) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.print(c.store.GetCart(cmd.Context()))
		},
	}
}

func (c *cli) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print item counts and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.print(c.store.GetCartSummary(cmd.Context()))
		},
	}
}

func (c *cli) addCmd() *cobra.Command {
	var (
		product  cart.Product
		quantity int
		custom   customizationFlags
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := c.store.AddItem(cmd.Context(), product, quantity, custom.value())
			if err != nil {
				return err
			}
			return c.print(updated)
		},
	}
	cmd.Flags().StringVar(&product.ID, "id", "", "product id")
	cmd.Flags().StringVar(&product.Name, "name", "", "product name")
	cmd.Flags().Float64Var(&product.Price, "price", 0, "unit price")
	cmd.Flags().StringSliceVar(&product.Images, "image", nil, "product image url (repeatable)")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	custom.register(cmd)
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var custom customizationFlags
	cmd := &cobra.Command{
		Use:   "update <productId> <quantity>",
		Short: "Set the quantity of a cart slot; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %w", err)
			}
			updated, err := c.store.UpdateQuantity(cmd.Context(), args[0], quantity, custom.value())
			if err != nil {
				return err
			}
			return c.print(updated)
		},
	}
	custom.register(cmd)
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	var custom customizationFlags
	cmd := &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove one cart slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.print(c.store.RemoveItem(cmd.Context(), args[0], custom.value()))
		},
	}
	custom.register(cmd)
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.print(c.store.ClearCart(cmd.Context()))
		},
	}
}

func (c *cli) shippingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shipping",
		Short: "Print shipping cost and free-shipping progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subtotal := c.store.GetCart(ctx).Subtotal
			return c.print(map[string]any{
				"subtotal":                subtotal,
				"shippingCost":            c.store.ShippingCost(subtotal),
				"eligibleForFreeShipping": c.store.IsEligibleForFreeShipping(ctx),
				"amountForFreeShipping":   c.store.AmountForFreeShipping(ctx),
			})
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cart document to stdout or --out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.store.ExportCartData(cmd.Context())
			if err != nil {
				return err
			}
			if path == "" {
				_, err = fmt.Fprintln(c.out, data)
				return err
			}
			return os.WriteFile(path, []byte(data), 0o644)
		},
	}
	cmd.Flags().StringVarP(&path, "out", "o", "", "output file")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the cart with a document from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(c.in)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read cart document: %w", err)
			}
			if len(data) == 0 {
				return errors.New("cart document is empty")
			}
			imported, err := c.store.ImportCartData(cmd.Context(), string(data))
			if err != nil {
				return err
			}
			return c.print(imported)
		},
	}
}
