package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSnapshot(w io.Writer, snap workspace.Snapshot, asJSON bool) error {
	if asJSON {
		return printJSON(w, snap)
	}
	t := snap.Ticket
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticket\t#%d\n", t.ID)
	if t.Customer != nil {
		fmt.Fprintf(tw, "Customer\t%s\n", t.Customer.Name)
	}
	fmt.Fprintf(tw, "Issue\t%s\n", t.Issue)
	status := snap.StatusName()
	if snap.IsClosed() {
		status += " (closed " + formatTime(t.ClosedTime) + ")"
	}
	fmt.Fprintf(tw, "Status\t%s\n", status)
	fmt.Fprintf(tw, "Priority\t%s\n", enumName(snap.Catalog.Priorities, t.PriorityID))
	fmt.Fprintf(tw, "Branch\t%s\n", enumName(snap.Catalog.Branches, t.BranchID))
	fmt.Fprintf(tw, "Due\t%s\n", formatTime(t.DueDate))
	fmt.Fprintf(tw, "Agents\t%s\n", members(t.Agents))
	fmt.Fprintf(tw, "Notify\t%s\n", members(t.NotifyUsers))
	fmt.Fprintf(tw, "Labels\t%s\n", members(t.Labels))
	if t.VerifiedAt != nil {
		fmt.Fprintf(tw, "Verified\t%s %s\n", formatTime(t.VerifiedAt), t.VerificationRemarks)
	}
	fmt.Fprintf(tw, "Notes\t%d\n", len(snap.Notes))
	fmt.Fprintf(tw, "Tasks\t%d\n", len(snap.Tasks))
	fmt.Fprintf(tw, "Attachments\t%d\n", len(snap.Attachments))
	fmt.Fprintf(tw, "Spare parts\t%d (%s)\n", len(snap.SpareParts), money(snap.ItemCost()))
	fmt.Fprintf(tw, "Activities\t%d\n", len(t.Activities))
	return tw.Flush()
}

func printDraft(w io.Writer, d *workspace.InvoiceDraft, serviceCharge, discount int64) {
	if d.Existing != nil {
		printInvoice(w, &workspace.InvoiceResult{Invoice: d.Existing, AlreadyExisted: true})
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticket\t#%d\n", d.TicketID)
	fmt.Fprintf(tw, "Verified\t%t\n", d.Verified)
	fmt.Fprintf(tw, "Items\t%s\n", money(d.ItemCost))
	fmt.Fprintf(tw, "Service charge\t%s\n", money(serviceCharge))
	fmt.Fprintf(tw, "Discount\t%s\n", money(discount))
	fmt.Fprintf(tw, "Estimate\t%s\n", money(d.Total(serviceCharge, discount)))
	_ = tw.Flush()
}

func printInvoice(w io.Writer, res *workspace.InvoiceResult) {
	inv := res.Invoice
	if res.AlreadyExisted {
		fmt.Fprintf(w, "Ticket #%d already has invoice #%d\n", inv.TicketID, inv.ID)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Invoice\t#%d\n", inv.ID)
	fmt.Fprintf(tw, "Items\t%s\n", money(inv.ItemCost))
	fmt.Fprintf(tw, "Service charge\t%s\n", money(inv.ServiceCharge))
	fmt.Fprintf(tw, "Discount\t%s\n", money(inv.Discount))
	fmt.Fprintf(tw, "Total\t%s\n", money(inv.TotalAmount))
	fmt.Fprintf(tw, "Outstanding\t%s\n", money(inv.Outstanding))
	fmt.Fprintf(tw, "Payment mode\t%s\n", inv.PaymentMode)
	_ = tw.Flush()
}

func enumName(rows []dto.EnumResponse, id int64) string {
	for _, r := range rows {
		if r.ID == id {
			return r.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func members(refs []dto.MemberRef) string {
	if len(refs) == 0 {
		return "-"
	}
	names := make([]string, len(refs))
	for i, m := range refs {
		names[i] = fmt.Sprintf("%s (%d)", m.Name, m.ID)
	}
	return strings.Join(names, ", ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
