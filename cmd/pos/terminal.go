package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pdvlabs/balcao/internal/cart"
	"github.com/pdvlabs/balcao/internal/journal"
	"github.com/pdvlabs/balcao/internal/products"
	"github.com/pdvlabs/balcao/internal/settlement"
	"github.com/pdvlabs/balcao/pkg/enums"
	pkgerrors "github.com/pdvlabs/balcao/pkg/errors"
	"github.com/pdvlabs/balcao/pkg/logger"
	"github.com/pdvlabs/balcao/pkg/money"
	"github.com/pdvlabs/balcao/pkg/posapi"
)

// terminal is the interactive loop the operator drives. Any line that is
// not a command is treated as a scan: a barcode, a product name, or
// either with an "Nx" quantity prefix.
type terminal struct {
	session   *cart.Session
	lookup    *products.Lookup
	calc      *settlement.Calculator
	submitter *settlement.Submitter
	journal   *journal.Journal
	api       *posapi.Client
	logg      *logger.Logger
}

func newTerminal(
	session *cart.Session,
	lookup *products.Lookup,
	calc *settlement.Calculator,
	submitter *settlement.Submitter,
	shiftJournal *journal.Journal,
	api *posapi.Client,
	logg *logger.Logger,
) *terminal {
	return &terminal{
		session:   session,
		lookup:    lookup,
		calc:      calc,
		submitter: submitter,
		journal:   shiftJournal,
		api:       api,
		logg:      logg,
	}
}

// Run reads operator input line by line until exit or EOF.
func (t *terminal) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "scan a product, or type 'help'")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		t.dispatch(ctx, out, line)
	}
}

func (t *terminal) dispatch(ctx context.Context, out io.Writer, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		t.printHelp(out)
	case "cart":
		t.printCart(out)
	case "find":
		err = t.find(ctx, out, strings.Join(args, " "))
	case "qty":
		err = t.changeQuantity(ctx, out, args)
	case "rm":
		err = t.removeLine(ctx, out, args)
	case "cancel":
		if err = t.session.Cancel(ctx); err == nil {
			fmt.Fprintln(out, "order cancelled")
		}
	case "hold":
		if err = t.session.Hold(ctx); err == nil {
			fmt.Fprintln(out, "order held")
		}
	case "held":
		err = t.listHeld(ctx, out)
	case "resume":
		err = t.resume(ctx, out, args)
	case "customer":
		err = t.customer(ctx, out, args)
	case "pay":
		err = t.openSettlement(out)
	case "amount":
		err = t.editEntry(out, args)
	case "addpay":
		if err = t.calc.AddEntry(); err == nil {
			t.printEntries(out)
		}
	case "rmpay":
		err = t.removeEntry(out, args)
	case "split":
		err = t.split(out, args)
	case "confirm":
		err = t.confirm(ctx, out, false)
	case "quickpay":
		err = t.confirm(ctx, out, true)
	case "abort":
		t.calc.Close()
		fmt.Fprintln(out, "settlement aborted, cart kept")
	case "recent":
		err = t.printRecent(ctx, out)
	case "totals":
		err = t.printTotals(ctx, out)
	default:
		err = t.scan(ctx, out, line)
	}

	if err != nil {
		t.printError(ctx, out, err)
	}
}

func (t *terminal) printHelp(out io.Writer) {
	fmt.Fprint(out, `any other input        scan (barcode, name, or "3x name")
find <term>            product suggestions
cart                   show the open order
qty <product> <delta>  change a line quantity by delta
rm <line>              remove an order line by its id
cancel | hold | held | resume <order>
customer <term>        attach a customer, customer - to clear
pay                    open settlement for the cart total
amount <n> <method> <value> | addpay | rmpay <n> | split <people>
confirm | quickpay | abort
recent | totals        shift journal
exit
`)
}

func (t *terminal) scan(ctx context.Context, out io.Writer, entry string) error {
	product, quantity, err := t.lookup.Scan(ctx, entry)
	if err != nil {
		return err
	}
	if err := t.session.AddProduct(ctx, product, quantity); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d x %s\n", quantity, product.Name)
	t.printCart(out)
	return nil
}

func (t *terminal) find(ctx context.Context, out io.Writer, term string) error {
	matches, err := t.lookup.Suggest(ctx, term)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}
	for _, p := range matches {
		fmt.Fprintf(out, "  [%d] %s  %s\n", p.ID, p.Name, money.Format(money.FromFloat(p.Price)))
	}
	return nil
}

func (t *terminal) changeQuantity(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: qty <product> <delta>")
	}
	productID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be a number")
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delta must be a number")
	}
	if err := t.session.ChangeQuantity(ctx, productID, delta); err != nil {
		return err
	}
	t.printCart(out)
	return nil
}

func (t *terminal) removeLine(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: rm <line>")
	}
	itemID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "line id must be a number")
	}
	if err := t.session.RemoveLine(ctx, itemID); err != nil {
		return err
	}
	t.printCart(out)
	return nil
}

func (t *terminal) listHeld(ctx context.Context, out io.Writer) error {
	orders, err := t.api.GetHeldOrders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(out, "no held orders")
		return nil
	}
	for _, o := range orders {
		total := decimal.Zero
		for _, item := range o.Items {
			total = total.Add(money.FromFloat(item.UnitPrice()).Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		fmt.Fprintf(out, "  order %d  %d items  %s\n", o.ID, len(o.Items), money.Format(total))
	}
	return nil
}

func (t *terminal) resume(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: resume <order>")
	}
	orderID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id must be a number")
	}
	if err := t.session.Resume(ctx, orderID); err != nil {
		return err
	}
	t.printCart(out)
	return nil
}

func (t *terminal) customer(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: customer <term>, or customer - to clear")
	}
	if args[0] == "-" {
		t.session.ClearCustomer()
		fmt.Fprintln(out, "customer cleared")
		return nil
	}
	matches, err := t.api.SearchCustomers(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		fmt.Fprintln(out, "no customer found")
	case 1:
		t.session.SelectCustomer(matches[0])
		fmt.Fprintf(out, "customer: %s\n", matches[0].FullName)
	default:
		for _, c := range matches {
			fmt.Fprintf(out, "  [%d] %s\n", c.ID, c.FullName)
		}
		fmt.Fprintln(out, "narrow the search to pick one")
	}
	return nil
}

func (t *terminal) openSettlement(out io.Writer) error {
	if err := t.calc.Open(t.session.Subtotal()); err != nil {
		return err
	}
	fmt.Fprintf(out, "total to pay %s\n", money.Format(t.calc.TotalToPay()))
	t.printEntries(out)
	return nil
}

func (t *terminal) editEntry(out io.Writer, args []string) error {
	if len(args) != 3 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: amount <n> <method> <value>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry number must be a number")
	}
	method, err := enums.ParsePaymentMethod(args[1])
	if err != nil {
		return err
	}
	value, err := decimal.NewFromString(args[2])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "value must be an amount like 12.50")
	}
	if err := t.calc.EditEntry(index, method, value); err != nil {
		return err
	}
	t.printEntries(out)
	return nil
}

func (t *terminal) removeEntry(out io.Writer, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: rmpay <n>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry number must be a number")
	}
	if err := t.calc.RemoveEntry(index); err != nil {
		return err
	}
	t.printEntries(out)
	return nil
}

func (t *terminal) split(out io.Writer, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: split <people>")
	}
	people, err := strconv.Atoi(args[0])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "people must be a number")
	}
	if err := t.calc.SplitEvenly(people); err != nil {
		return err
	}
	t.printEntries(out)
	return nil
}

func (t *terminal) confirm(ctx context.Context, out io.Writer, quick bool) error {
	// The sale must be refused before it reaches the backend: once
	// POST /sales succeeds the session reset cannot fail, or a held
	// order could be settled twice.
	if err := t.session.AllowsSettlement(); err != nil {
		return err
	}

	items := saleItems(t.session.Lines())
	customerID := t.session.CustomerID()
	var orderID *int64
	if id := t.session.OrderID(); id != 0 {
		orderID = &id
	}

	// Confirm closes the calculator on success, so snapshot what the
	// journal needs first.
	entries := t.calc.Entries()
	total := t.calc.TotalToPay()

	var (
		result *settlement.Result
		err    error
	)
	if quick {
		result, err = t.submitter.QuickConfirm(ctx, items, customerID, orderID)
	} else {
		result, err = t.submitter.Confirm(ctx, items, customerID, orderID)
	}
	if err != nil {
		return err
	}

	t.recordSale(ctx, result, orderID, entries, total)
	if err := t.session.CompleteSettlement(); err != nil {
		return err
	}

	fmt.Fprintf(out, "sale %d done, change %s\n", result.SaleID, money.Format(result.Change))
	return nil
}

// recordSale journals the finished sale. The sale already exists on the
// backend, so a journal failure is logged and swallowed.
func (t *terminal) recordSale(ctx context.Context, result *settlement.Result, orderID *int64, entries []settlement.Entry, total decimal.Decimal) {
	if t.journal == nil {
		return
	}

	lines := make([]journal.PaymentLine, 0)
	for _, e := range entries {
		if e.Amount.Sign() > 0 {
			lines = append(lines, journal.PaymentLine{Method: e.Method, Amount: e.Amount})
		}
	}
	saleID := &result.SaleID
	if result.SaleID == 0 {
		saleID = nil
	}
	_, err := t.journal.Record(ctx, journal.Entry{
		SaleID:      saleID,
		OrderID:     orderID,
		Total:       total,
		ChangeGiven: result.Change,
		Payments:    lines,
	})
	if err != nil {
		t.logg.Error(ctx, "failed to journal sale", err)
	}
}

func (t *terminal) printRecent(ctx context.Context, out io.Writer) error {
	if t.journal == nil {
		fmt.Fprintln(out, "journal disabled")
		return nil
	}
	records, err := t.journal.Recent(ctx, 10)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no sales yet")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(out, "  %s  %s  change %s\n",
			r.RecordedAt.Format("15:04:05"), money.Format(r.Total()), money.Format(r.ChangeGiven()))
	}
	return nil
}

func (t *terminal) printTotals(ctx context.Context, out io.Writer) error {
	if t.journal == nil {
		fmt.Fprintln(out, "journal disabled")
		return nil
	}
	totals, err := t.journal.TotalsByMethod(ctx, time.Now())
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Fprintln(out, "no sales yet")
		return nil
	}
	for _, row := range totals {
		fmt.Fprintf(out, "  %-12s %s\n", row.Method, money.Format(row.Total))
	}
	return nil
}

func (t *terminal) printCart(out io.Writer) {
	lines := t.session.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(out, "  [%d] %dx %-24s %s\n", l.OrderItemID, l.Quantity, l.Name, money.Format(l.Total()))
	}
	fmt.Fprintf(out, "  subtotal %s (%d items)\n", money.Format(t.session.Subtotal()), t.session.ItemCount())
}

func (t *terminal) printEntries(out io.Writer) {
	for i, e := range t.calc.Entries() {
		fmt.Fprintf(out, "  [%d] %-12s %s\n", i, e.Method, money.Format(e.Amount))
	}
	fmt.Fprintf(out, "  paid %s  remaining %s  change %s\n",
		money.Format(t.calc.TotalPaid()), money.Format(t.calc.Remaining()), money.Format(t.calc.Change()))
}

func (t *terminal) printError(ctx context.Context, out io.Writer, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		t.logg.Error(ctx, "command failed", err)
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "error: %s\n", typed.Message())
}

func saleItems(lines []cart.Line) []posapi.SaleItem {
	items := make([]posapi.SaleItem, 0, len(lines))
	for _, l := range lines {
		price, _ := money.Round2(l.UnitPrice).Float64()
		items = append(items, posapi.SaleItem{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			PriceAtSale: price,
		})
	}
	return items
}
