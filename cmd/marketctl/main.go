// Command marketctl is a terminal client for the marketplace API. The login session
// and the shopping cart are kept in a local state directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/farmmarket/pkg/cart"
	"github.com/example/farmmarket/pkg/client"
	"github.com/example/farmmarket/pkg/models"
	"github.com/example/farmmarket/pkg/order"
	"github.com/spf13/pflag"
)

const usage = `Usage: marketctl [--api URL] [--state DIR] <command> [flags] [args]

Commands:
  register   --name NAME --email EMAIL --password PASSWORD
  login      --email EMAIL --password PASSWORD
  logout
  whoami
  products   [--category CATEGORY] [--search TEXT] [--limit N]
  add        PRODUCT_ID [QUANTITY]
  set        PRODUCT_ID QUANTITY
  remove     PRODUCT_ID
  cart
  clear
  checkout   --street S --city C --state S --zip Z [--payment METHOD] [--notes TEXT]
  orders
  order      ORDER_ID
  status     ORDER_ID STATUS
`

var errUsage = errors.New("invalid usage")

type cli struct {
	api   *client.Client
	state stateDir
	out   io.Writer
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "farmmarket")
	}
	return ".farmmarket"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("marketctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	apiURL := global.String("api", envOr("FARMMARKET_API", "http://localhost:5000"), "API base URL")
	dir := global.String("state", envOr("FARMMARKET_STATE", defaultStateDir()), "state directory")
	timeout := global.Duration("timeout", 30*time.Second, "request timeout")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if global.NArg() == 0 {
		return errUsage
	}

	c := &cli{
		api:   client.New(*apiURL, *timeout),
		state: stateDir(*dir),
		out:   out,
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "register":
		return c.register(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.state.clearSession()
	case "whoami":
		return c.whoami(ctx)
	case "products":
		return c.products(ctx, rest)
	case "add":
		return c.add(ctx, rest)
	case "set":
		return c.set(ctx, rest)
	case "remove":
		return c.remove(ctx, rest)
	case "cart":
		return c.showCart(ctx)
	case "clear":
		return c.state.saveCart(cart.Empty())
	case "checkout":
		return c.checkout(ctx, rest)
	case "orders":
		return c.orders(ctx)
	case "order":
		return c.order(ctx, rest)
	case "status":
		return c.status(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func (c *cli) requireSession() (*client.Session, error) {
	sess, err := c.state.session()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, client.ErrNoSession
	}
	return sess, nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	sess, err := c.api.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	if err := sess.Save(c.state.sessionPath()); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered and logged in as %s\n", sess.User.Email)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	sess, err := c.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := sess.Save(c.state.sessionPath()); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s (%s)\n", sess.User.Email, sess.User.Role)
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	user, err := c.api.Me(ctx, sess)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> %s\n", user.Name, user.Email, user.Role)
	return nil
}

func (c *cli) products(ctx context.Context, args []string) error {
	fs := newFlags("products")
	category := fs.String("category", "", "category filter")
	search := fs.String("search", "", "name or description search")
	limit := fs.Int("limit", 0, "maximum number of products")
	if err := parse(fs, args); err != nil {
		return err
	}

	products, err := c.api.Products(ctx, models.ProductFilter{
		Category: models.Category(*category),
		Search:   *search,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Unit, p.Stock)
	}
	return w.Flush()
}

func positional(args []string, n int) ([]string, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", errUsage, n, len(args))
	}
	return args, nil
}

func quantityArg(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid quantity %q", errUsage, s)
	}
	return q, nil
}

func (c *cli) add(ctx context.Context, args []string) error {
	if len(args) == 1 {
		args = append(args, "1")
	}
	args, err := positional(args, 2)
	if err != nil {
		return err
	}
	qty, err := quantityArg(args[1])
	if err != nil {
		return err
	}

	product, err := c.api.Product(ctx, args[0])
	if err != nil {
		return err
	}
	return c.apply(ctx, cart.AddLine{Product: product, Quantity: qty})
}

func (c *cli) set(ctx context.Context, args []string) error {
	args, err := positional(args, 2)
	if err != nil {
		return err
	}
	qty, err := quantityArg(args[1])
	if err != nil {
		return err
	}
	return c.apply(ctx, cart.SetQuantity{ProductID: args[0], Quantity: qty})
}

func (c *cli) remove(ctx context.Context, args []string) error {
	args, err := positional(args, 1)
	if err != nil {
		return err
	}
	return c.apply(ctx, cart.RemoveLine{ProductID: args[0]})
}

func (c *cli) apply(ctx context.Context, action cart.Action) error {
	current, err := c.state.loadCart(ctx, c.api)
	if err != nil {
		return err
	}
	next, err := cart.Reduce(current, action)
	if err != nil {
		return err
	}
	if err := c.state.saveCart(next); err != nil {
		return err
	}
	return c.printCart(next)
}

func (c *cli) showCart(ctx context.Context) error {
	current, err := c.state.loadCart(ctx, c.api)
	if err != nil {
		return err
	}
	return c.printCart(current)
}

func (c *cli) printCart(s cart.State) error {
	if s.IsEmpty() {
		fmt.Fprintln(c.out, "Cart is empty")
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tSUBTOTAL")
	for _, line := range s.Lines {
		fmt.Fprintf(w, "%s\t%s\t%d %s\t%s\n",
			line.Product.ID, line.Product.Name, line.Quantity, line.Product.Unit, line.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\t%d items\t%s\n", s.ItemCount(), s.Total.StringFixed(2))
	return w.Flush()
}

func (c *cli) checkout(ctx context.Context, args []string) error {
	fs := newFlags("checkout")
	street := fs.String("street", "", "street address")
	city := fs.String("city", "", "city")
	state := fs.String("state", "", "state")
	zip := fs.String("zip", "", "zip code")
	payment := fs.String("payment", string(models.PaymentCashOnDelivery), "cash_on_delivery, card or upi")
	notes := fs.String("notes", "", "delivery notes")
	if err := parse(fs, args); err != nil {
		return err
	}

	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	current, err := c.state.loadCart(ctx, c.api)
	if err != nil {
		return err
	}

	placed, err := c.api.PlaceOrder(ctx, sess, storedLines(current), order.CheckoutRequest{
		ShippingAddress: models.Address{Street: *street, City: *city, State: *state, ZipCode: *zip},
		PaymentMethod:   models.PaymentMethod(*payment),
		Notes:           *notes,
	})
	if err != nil {
		return err
	}
	if err := c.state.saveCart(cart.Empty()); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Order %s placed, total %s\n", placed.ID, placed.TotalAmount.StringFixed(2))
	return nil
}

func (c *cli) orders(ctx context.Context) error {
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	orders, err := c.api.MyOrders(ctx, sess)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.Status, len(o.Items), o.TotalAmount.StringFixed(2), o.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func (c *cli) order(ctx context.Context, args []string) error {
	args, err := positional(args, 1)
	if err != nil {
		return err
	}
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	o, err := c.api.Order(ctx, sess, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Order %s (%s)\n", o.ID, o.Status)
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, item := range o.Items {
		fmt.Fprintf(w, "  %s\t%d %s\t%s\n", item.ProductName, item.Quantity, item.Unit, item.Subtotal().StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	addr := o.ShippingAddress
	fmt.Fprintf(c.out, "Total %s, ship to %s\n", o.TotalAmount.StringFixed(2),
		strings.Join([]string{addr.Street, addr.City, addr.State, addr.ZipCode}, ", "))
	return nil
}

func (c *cli) status(ctx context.Context, args []string) error {
	args, err := positional(args, 2)
	if err != nil {
		return err
	}
	sess, err := c.requireSession()
	if err != nil {
		return err
	}
	o, err := c.api.UpdateOrderStatus(ctx, sess, args[0], models.OrderStatus(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Order %s is now %s\n", o.ID, o.Status)
	return nil
}
