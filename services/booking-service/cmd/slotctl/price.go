package main

import (
	"fmt"

	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPriceCmd() *cobra.Command {
	var rate, fee, surcharge, discount string
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Quote a consultation price",
		Long: `Quote the amount charged for a consultation.

The surcharge is applied to the base rate, then the platform fee, the result is
rounded half-up to a whole unit and the online discount is taken off last.`,
		Example: `  slotctl price --rate 100 --fee 10
  slotctl price --rate 100 --fee 10 --surcharge 25 --discount 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := pricing.Input{}
			var err error
			if in.BaseRate, err = decimal.NewFromString(rate); err != nil {
				return fmt.Errorf("invalid --rate %q", rate)
			}
			if in.PlatformFeePercent, err = decimal.NewFromString(fee); err != nil {
				return fmt.Errorf("invalid --fee %q", fee)
			}
			if in.ServiceSurchargePercent, err = optionalPercent("surcharge", surcharge); err != nil {
				return err
			}
			if in.OnlineDiscountPercent, err = optionalPercent("discount", discount); err != nil {
				return err
			}
			q, err := pricing.Compute(in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "base rate:  %s\n", q.BaseRate)
			fmt.Fprintf(out, "surcharge:  %s\n", q.ServiceSurcharge)
			fmt.Fprintf(out, "fee:        %s\n", q.PlatformFee)
			fmt.Fprintf(out, "discount:   %s\n", q.Discount)
			fmt.Fprintf(out, "total:      %s\n", q.FinalAmount)
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "base rate for the consulting type")
	cmd.Flags().StringVar(&fee, "fee", "0", "platform fee percent")
	cmd.Flags().StringVar(&surcharge, "surcharge", "", "add-on service percent")
	cmd.Flags().StringVar(&discount, "discount", "", "online payment discount percent")
	_ = cmd.MarkFlagRequired("rate")
	return cmd
}

func optionalPercent(name, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return &d, nil
}
