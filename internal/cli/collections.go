package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/wedplan/internal/export"
	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/planner"
)

func newID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func newGuestsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guests",
		Short: "Manage the guest list and RSVPs",
	}

	var g model.Guest
	var rsvp string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Invite a guest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			g.ID = newID()
			g.Name = strings.Join(args, " ")
			g.RSVP = model.RSVPStatus(strings.ToLower(rsvp))
			g.CreatedAt = time.Now().UTC()
			if err := c.Guests.Add(cmd.Context(), g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "guest %s added id=%s\n", g.Name, g.ID)
			return nil
		},
	}
	add.Flags().StringVar(&g.Email, "email", "", "email address")
	add.Flags().StringVar(&g.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&g.Side, "side", "", "whose side the guest is on")
	add.Flags().IntVar(&g.PlusOnes, "plus-ones", 0, "number of companions")
	add.Flags().StringVar(&g.Table, "table", "", "seating table")
	add.Flags().StringVar(&rsvp, "rsvp", string(model.RSVPPending), "pending, accepted or declined")

	rsvpCmd := &cobra.Command{
		Use:   "rsvp <id> <pending|accepted|declined>",
		Short: "Record a guest's answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			guest, err := c.Guests.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			guest.RSVP = model.RSVPStatus(strings.ToLower(args[1]))
			if err := c.Guests.Update(cmd.Context(), guest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", guest.Name, guest.RSVP)
			return nil
		},
	}

	var csv bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List guests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			guests, err := c.Guests.List(cmd.Context(), nil)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if csv {
				fmt.Fprintln(w, export.Records(guests))
				return nil
			}
			for _, g := range guests {
				fmt.Fprintf(w, "%s  %-24s %-8s +%d\n", g.ID, g.Name, g.RSVP, g.PlusOnes)
			}
			s, err := planner.GuestSummary(cmd.Context(), c.Guests)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "invited %d, accepted %d, declined %d, pending %d, headcount %d\n",
				s.Invited, s.Accepted, s.Declined, s.Pending, s.Headcount)
			return nil
		},
	}
	list.Flags().BoolVar(&csv, "csv", false, "print as CSV")

	cmd.AddCommand(add, rsvpCmd, list, removeCommand("guest", func() (remover, error) {
		c, err := a.plannerCollections()
		if err != nil {
			return nil, err
		}
		return c.Guests, nil
	}))
	return cmd
}

func newBudgetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Track wedding and JGA spending",
	}

	var item model.BudgetItem
	var scope, planned, actual string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a budget line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if item.Planned, err = model.ParseCents(planned); err != nil {
				return err
			}
			if item.Actual, err = model.ParseCents(actual); err != nil {
				return err
			}
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			item.ID = newID()
			item.Name = strings.Join(args, " ")
			item.Scope = model.BudgetScope(strings.ToLower(scope))
			item.CreatedAt = time.Now().UTC()
			if err := c.Budget.Add(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "budget line %s added id=%s\n", item.Name, item.ID)
			return nil
		},
	}
	add.Flags().StringVar(&scope, "scope", string(model.ScopeWedding), "wedding or jga")
	add.Flags().StringVar(&item.Category, "category", "", "category id")
	add.Flags().StringVar(&planned, "planned", "0", "planned amount, e.g. 1200.50")
	add.Flags().StringVar(&actual, "actual", "0", "amount spent so far")
	add.Flags().BoolVar(&item.Paid, "paid", false, "already paid")
	add.Flags().StringVar(&item.VendorID, "vendor", "", "vendor id")

	var spent string
	pay := &cobra.Command{
		Use:   "pay <id>",
		Short: "Mark a budget line paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			b, err := c.Budget.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("actual") {
				if b.Actual, err = model.ParseCents(spent); err != nil {
					return err
				}
			}
			b.Paid = true
			if err := c.Budget.Update(cmd.Context(), b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paid %s (%s)\n", b.Name, model.FormatCents(b.Actual))
			return nil
		},
	}
	pay.Flags().StringVar(&spent, "actual", "", "final amount")

	var csv bool
	var listScope string
	list := &cobra.Command{
		Use:   "list",
		Short: "List budget lines with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			s := model.BudgetScope(strings.ToLower(listScope))
			items, err := c.Budget.List(cmd.Context(), func(b model.BudgetItem) bool { return b.Scope == s })
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if csv {
				fmt.Fprintln(w, export.Records(items))
				return nil
			}
			for _, b := range items {
				fmt.Fprintf(w, "%s  %-24s planned %10s  actual %10s  paid %t\n",
					b.ID, b.Name, model.FormatCents(b.Planned), model.FormatCents(b.Actual), b.Paid)
			}
			t, err := planner.BudgetSummary(cmd.Context(), c.Budget, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: planned %s, spent %s, paid %s, open %s, remaining %s\n",
				t.Scope, model.FormatCents(t.Planned), model.FormatCents(t.Actual),
				model.FormatCents(t.Paid), model.FormatCents(t.Open), model.FormatCents(t.Remaining()))
			return nil
		},
	}
	list.Flags().StringVar(&listScope, "scope", string(model.ScopeWedding), "wedding or jga")
	list.Flags().BoolVar(&csv, "csv", false, "print as CSV")

	cmd.AddCommand(add, pay, list, removeCommand("budget line", func() (remover, error) {
		c, err := a.plannerCollections()
		if err != nil {
			return nil, err
		}
		return c.Budget, nil
	}))
	return cmd
}

func newVendorsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Keep track of vendors",
	}

	var v model.Vendor
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a vendor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			v.ID = newID()
			v.Name = strings.Join(args, " ")
			v.CreatedAt = time.Now().UTC()
			if err := c.Vendors.Add(cmd.Context(), v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vendor %s added id=%s\n", v.Name, v.ID)
			return nil
		},
	}
	add.Flags().StringVar(&v.Service, "service", "", "what the vendor provides")
	add.Flags().StringVar(&v.Contact, "contact", "", "contact person")
	add.Flags().StringVar(&v.Phone, "phone", "", "phone number")
	add.Flags().BoolVar(&v.Booked, "booked", false, "already booked")
	add.Flags().StringVar(&v.Notes, "notes", "", "free-form notes")

	book := &cobra.Command{
		Use:   "book <id>",
		Short: "Mark a vendor booked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			vendor, err := c.Vendors.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			vendor.Booked = true
			if err := c.Vendors.Update(cmd.Context(), vendor); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booked %s\n", vendor.Name)
			return nil
		},
	}

	var csv bool
	var service string
	list := &cobra.Command{
		Use:   "list",
		Short: "List vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.plannerCollections()
			if err != nil {
				return err
			}
			vendors, err := planner.VendorsFor(cmd.Context(), c.Vendors, service)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if csv {
				fmt.Fprintln(w, export.Records(vendors))
				return nil
			}
			for _, v := range vendors {
				fmt.Fprintf(w, "%s  %-24s %-16s booked %t\n", v.ID, v.Name, v.Service, v.Booked)
			}
			return nil
		},
	}
	list.Flags().StringVar(&service, "service", "", "only vendors offering this service")
	list.Flags().BoolVar(&csv, "csv", false, "print as CSV")

	cmd.AddCommand(add, book, list, removeCommand("vendor", func() (remover, error) {
		c, err := a.plannerCollections()
		if err != nil {
			return nil, err
		}
		return c.Vendors, nil
	}))
	return cmd
}

type remover interface {
	Remove(ctx context.Context, id string) error
}

func removeCommand(kind string, open func() (remover, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a " + kind,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := open()
			if err != nil {
				return err
			}
			if err := r.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s removed\n", kind, args[0])
			return nil
		},
	}
}
