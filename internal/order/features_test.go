package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/VITperson/batumi-lunch-site2/internal/availability"
	"github.com/VITperson/batumi-lunch-site2/internal/pricing"
	"github.com/VITperson/batumi-lunch-site2/internal/storage/memory"
	"github.com/VITperson/batumi-lunch-site2/internal/types/menu"
	"github.com/VITperson/batumi-lunch-site2/internal/types/order"
	"github.com/VITperson/batumi-lunch-site2/internal/util/calendar"
	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type lunchTestContext struct {
	now     time.Time
	store   *memory.Storage
	avail   *availability.Service
	prices  *pricing.Service
	orders  *Service
	week    menu.MenuWeek
	prior   *order.Order
	info    *ConflictInfo
	pending order.BasketSelection
	priced  pricing.PricedOrder
	checked availability.Result
	err     error
}

func (c *lunchTestContext) reset() {
	c.now = time.Time{}
	c.store = memory.New()
	clock := func() time.Time { return c.now }
	c.avail = availability.NewService(c.store, c.store, availability.Config{DeadlineHour: 10, Clock: clock})
	c.prices = pricing.NewService(c.store, pricing.Config{MaxPortions: 8, MaxWeeksAhead: 8, Clock: clock})
	c.orders = NewService(c.store, c.avail, c.prices, Config{MaxPortions: 8, Clock: clock})
	c.week = menu.MenuWeek{}
	c.prior = nil
	c.info = nil
	c.pending = order.BasketSelection{}
	c.priced = pricing.PricedOrder{}
	c.checked = availability.Result{}
	c.err = nil
}

func (c *lunchTestContext) aPublishedMenu(weekStart string, basePrice string, deadline int) error {
	ws, err := calendar.ParseDate(weekStart)
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(basePrice)
	if err != nil {
		return err
	}
	c.week = menu.MenuWeek{WeekStart: ws, IsPublished: true, DeadlineHour: deadline, BasePrice: price}
	return nil
}

func (c *lunchTestContext) theMenuOffers(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		day, err := menu.ParseWeekday(row.Cells[0].Value)
		if err != nil {
			return err
		}
		offer := menu.DayOffer{
			Day:     day,
			Items:   []string{"блюдо дня"},
			Status:  menu.DayStatus(row.Cells[2].Value),
			SoldOut: row.Cells[3].Value == "true",
		}
		if v := row.Cells[1].Value; v != "" {
			price, err := decimal.NewFromString(v)
			if err != nil {
				return err
			}
			offer.Price = decimal.NewNullDecimal(price)
		}
		c.week.Offers = append(c.week.Offers, offer)
	}
	c.store.PutMenuWeek(c.week)
	return nil
}

func (c *lunchTestContext) theTimeIs(value string) error {
	now, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		return err
	}
	c.now = now
	return nil
}

var selectionPattern = regexp.MustCompile(`^(\w+) x (\d+)$`)

func (c *lunchTestContext) theWeekIsPriced(weekStart, list string) error {
	ws, err := calendar.ParseDate(weekStart)
	if err != nil {
		return err
	}
	var sels []order.BasketSelection
	for _, part := range strings.Split(list, ",") {
		m := selectionPattern.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return fmt.Errorf("bad selection %q", part)
		}
		day, err := menu.ParseWeekday(m[1])
		if err != nil {
			return err
		}
		n, _ := strconv.Atoi(m[2])
		sels = append(sels, order.BasketSelection{Day: day, Portions: n})
	}
	c.priced, err = c.prices.PriceSelections(context.Background(), pricing.PriceRequest{WeekStart: ws, Selections: sels})
	return err
}

func (c *lunchTestContext) pricedDay(name string) (pricing.DayBreakdown, error) {
	day, err := menu.ParseWeekday(name)
	if err != nil {
		return pricing.DayBreakdown{}, err
	}
	if len(c.priced.Weeks) == 0 {
		return pricing.DayBreakdown{}, errors.New("nothing was priced")
	}
	for _, d := range c.priced.Weeks[0].Days {
		if d.Day == day {
			return d, nil
		}
	}
	return pricing.DayBreakdown{}, fmt.Errorf("%s was not priced", day)
}

func (c *lunchTestContext) dayCostsAndCanBeOrdered(name, subtotal string) error {
	d, err := c.pricedDay(name)
	if err != nil {
		return err
	}
	want, err := decimal.NewFromString(subtotal)
	if err != nil {
		return err
	}
	if !d.Orderable() {
		return fmt.Errorf("%s is not orderable: %+v", name, d)
	}
	if !d.Subtotal.Equal(want) {
		return fmt.Errorf("expected %s subtotal %s, got %s", name, want, d.Subtotal)
	}
	return nil
}

func (c *lunchTestContext) dayIsSoldOut(name string) error {
	d, err := c.pricedDay(name)
	if err != nil {
		return err
	}
	if !d.SoldOut {
		return fmt.Errorf("expected %s to be sold out", name)
	}
	return nil
}

func (c *lunchTestContext) dayIsClosedBecause(name, reason string) error {
	d, err := c.pricedDay(name)
	if err != nil {
		return err
	}
	if !d.Closed || d.Reason != reason {
		return fmt.Errorf("expected %s closed with %q, got closed=%v reason=%q", name, reason, d.Closed, d.Reason)
	}
	return nil
}

func (c *lunchTestContext) theWeekTotalIs(total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	if !c.priced.Total.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, c.priced.Total)
	}
	return nil
}

func (c *lunchTestContext) customerHasOrdered(customerID int64, portions int, dayName string) error {
	day, err := menu.ParseWeekday(dayName)
	if err != nil {
		return err
	}
	out, err := c.orders.PlaceOrder(context.Background(), customerID, order.BasketSelection{Day: day, Portions: portions})
	if err != nil {
		return err
	}
	c.prior = out.Order
	return nil
}

func (c *lunchTestContext) customerOrders(customerID int64, portions int, dayName string) error {
	day, err := menu.ParseWeekday(dayName)
	if err != nil {
		return err
	}
	c.pending = order.BasketSelection{Day: day, Portions: portions}
	_, c.err = c.orders.PlaceOrder(context.Background(), customerID, c.pending)
	var conflict *ConflictError
	if errors.As(c.err, &conflict) {
		c.info = conflict.Info
	}
	return nil
}

func (c *lunchTestContext) heldBackByExistingOrder(portions int) error {
	if !errors.Is(c.err, ErrConflictPending) || c.info == nil {
		return fmt.Errorf("expected a pending conflict, got %v", c.err)
	}
	if c.info.PriorCount != portions {
		return fmt.Errorf("expected prior count %d, got %d", portions, c.info.PriorCount)
	}
	return nil
}

func (c *lunchTestContext) customerResolves(customerID int64, resolution string) error {
	if c.info == nil {
		return errors.New("no pending conflict")
	}
	info := *c.info
	info.CustomerID = customerID
	_, c.err = c.orders.ResolveConflict(context.Background(), info, resolution, c.pending)
	return nil
}

func (c *lunchTestContext) customerCancels(customerID int64) error {
	if c.prior == nil {
		return errors.New("no order to cancel")
	}
	_, c.err = c.orders.CancelOrder(context.Background(), order.Actor{CustomerID: customerID}, c.prior.ID)
	return nil
}

func (c *lunchTestContext) customerHasOrders(customerID int64, n int) error {
	all, err := c.store.ListOrdersByUser(context.Background(), customerID)
	if err != nil {
		return err
	}
	if len(all) != n {
		return fmt.Errorf("expected %d orders, got %d", n, len(all))
	}
	return nil
}

func (c *lunchTestContext) activeOrderHasPortions(dayName string, customerID int64, portions int) error {
	day, err := menu.ParseWeekday(dayName)
	if err != nil {
		return err
	}
	active, err := c.store.ListActiveOrders(context.Background(), customerID)
	if err != nil {
		return err
	}
	var found []order.Order
	for _, o := range active {
		if o.Day == day {
			found = append(found, o)
		}
	}
	if len(found) != 1 {
		return fmt.Errorf("expected one active %s order, got %d", day, len(found))
	}
	if found[0].Count != portions {
		return fmt.Errorf("expected %d portions, got %d", portions, found[0].Count)
	}
	return nil
}

func (c *lunchTestContext) thePreviousOrderHasStatus(status string) error {
	if c.prior == nil {
		return errors.New("no previous order")
	}
	o, err := c.store.FindOrder(context.Background(), c.prior.ID)
	if err != nil {
		return err
	}
	if string(o.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, o.Status)
	}
	return nil
}

func (c *lunchTestContext) theRequestFailsWith(substring string) error {
	if c.err == nil {
		return errors.New("expected the request to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), substring) {
		return fmt.Errorf("expected error containing %q, got %q", substring, c.err.Error())
	}
	return nil
}

func (c *lunchTestContext) theNextWeekWindowIsOpened() error {
	_, err := c.avail.OpenNextWeek(context.Background())
	return err
}

func (c *lunchTestContext) dayIsChecked(dayName string) error {
	day, err := menu.ParseWeekday(dayName)
	if err != nil {
		return err
	}
	c.checked, err = c.avail.CheckAvailability(context.Background(), day)
	return err
}

func (c *lunchTestContext) theDayIsAvailableForWeek(weekStart string) error {
	if !c.checked.Allowed {
		return fmt.Errorf("expected the day to be available, got %q", c.checked.Reason)
	}
	if got := calendar.Format(c.checked.WeekStart); got != weekStart {
		return fmt.Errorf("expected week %s, got %s", weekStart, got)
	}
	return nil
}

func (c *lunchTestContext) theNextWeekWindowIsClosed() error {
	st, err := c.store.GetWindowState(context.Background())
	if err != nil {
		return err
	}
	if st.Enabled {
		return errors.New("expected the next-week window to be closed")
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &lunchTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a published menu for the week of (\S+) with base price (\S+) and deadline hour (\d+)$`, tc.aPublishedMenu)
	ctx.Step(`^the menu offers:$`, tc.theMenuOffers)
	ctx.Step(`^the time is (\S+ \S+)$`, tc.theTimeIs)
	ctx.Step(`^customer (\d+) has ordered (\d+) portions for (\w+)$`, tc.customerHasOrdered)
	ctx.Step(`^the next-week window is opened$`, tc.theNextWeekWindowIsOpened)

	// When steps
	ctx.Step(`^the week of (\S+) is priced with (.+)$`, tc.theWeekIsPriced)
	ctx.Step(`^customer (\d+) orders (\d+) portions for (\w+)$`, tc.customerOrders)
	ctx.Step(`^customer (\d+) resolves the conflict with "([^"]*)"$`, tc.customerResolves)
	ctx.Step(`^customer (\d+) cancels the order$`, tc.customerCancels)
	ctx.Step(`^(\w+) is checked$`, tc.dayIsChecked)

	// Then steps
	ctx.Step(`^(\w+) costs (\S+) and can be ordered$`, tc.dayCostsAndCanBeOrdered)
	ctx.Step(`^(\w+) is sold out$`, tc.dayIsSoldOut)
	ctx.Step(`^(\w+) is closed because "([^"]*)"$`, tc.dayIsClosedBecause)
	ctx.Step(`^the week total is (\S+)$`, tc.theWeekTotalIs)
	ctx.Step(`^the order is held back by the existing order of (\d+) portions$`, tc.heldBackByExistingOrder)
	ctx.Step(`^customer (\d+) has (\d+) orders?$`, tc.customerHasOrders)
	ctx.Step(`^the active (\w+) order of customer (\d+) has (\d+) portions$`, tc.activeOrderHasPortions)
	ctx.Step(`^the previous order has status "([^"]*)"$`, tc.thePreviousOrderHasStatus)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the day is available for the week of (\S+)$`, tc.theDayIsAvailableForWeek)
	ctx.Step(`^the next-week window is closed$`, tc.theNextWeekWindowIsClosed)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/reconcile.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
