package walmart

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/eshaffer321/itemize/internal/domain/matcher"
	"github.com/shopspring/decimal"
)

// Page selectors for walmart.com order history
const (
	selOrderGroup     = `[data-testid^="orderGroup-"]`
	selReturnLink     = `a[link-identifier="Start a return"]`
	selSignIn         = `.mw3:contains("Sign In")`
	selYearOptions    = `#time-filter option`
	selItemTile       = `[data-testid="itemtile-stack"]`
	selProductName    = `[data-testid="productName"]`
	selItemPrice      = `.column3 .f5.b.black.tr`
	selCategory       = `[data-testid^="category-accordion"]`
	selCategoryLabel  = `[data-testid="category-label"]`
	selBillSection    = `[data-testid^="orderGroup-"], .print-bill-body`
	selBillDate       = `h1.print-bill-date`
	selBillTotal      = `.bill-order-total-payment h2`
	refundedLabelText = "Refunded"
)

var (
	orderIDPattern   = regexp.MustCompile(`orders/([^/?]+)`)
	listDatePattern  = regexp.MustCompile(`(\w+ \d{2}, \d{4}) purchase`)
	billDatePattern  = regexp.MustCompile(`(\w+ \d{2}, \d{4}) (order|purchase)`)
	nonAmountPattern = regexp.MustCompile(`[^0-9.-]+`)
)

// OrderRef is an order found on the order history page
type OrderRef struct {
	ID            string
	Date          string
	StorePurchase bool
}

// AccountPage is the parsed order history landing page
type AccountPage struct {
	SignedIn     bool
	StartingYear int
	Orders       []OrderRef
}

// ParseOrderList parses the order history page
func ParseOrderList(r io.Reader) (*AccountPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order list: %w", err)
	}

	page := &AccountPage{SignedIn: doc.Find(selSignIn).Length() == 0}
	if !page.SignedIn {
		return page, nil
	}

	page.StartingYear = lowestYear(doc)

	doc.Find(selOrderGroup).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find(selReturnLink).Attr("href")
		if !ok {
			return
		}
		m := orderIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}

		ref := OrderRef{
			ID:            m[1],
			StorePurchase: strings.Contains(href, "orderSource=STORE"),
		}
		if dm := listDatePattern.FindStringSubmatch(strings.TrimSpace(s.Find("h3").Text())); dm != nil {
			ref.Date = normalizeDate(dm[1])
		}
		page.Orders = append(page.Orders, ref)
	})

	return page, nil
}

// ParseOrderDetails parses an order details page into an order with its
// bill sections as charges. Items are split between purchase and refund
// charges by their refunded state.
func ParseOrderDetails(r io.Reader, ref OrderRef) (matcher.Order, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return matcher.Order{}, fmt.Errorf("failed to parse order %s: %w", ref.ID, err)
	}

	var items []matcher.Item
	doc.Find(selItemTile).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(selProductName).First().Text())
		if title == "" {
			return
		}
		price, _ := parseAmount(s.Find(selItemPrice).First().Text())
		refunded := strings.Contains(
			s.Closest(selCategory).Find(selCategoryLabel).Text(),
			refundedLabelText,
		)
		items = append(items, matcher.Item{
			OrderID:  ref.ID,
			Title:    title,
			Price:    price,
			Refunded: refunded,
		})
	})

	order := matcher.Order{ID: ref.ID, Date: ref.Date}

	doc.Find(selBillSection).Each(func(_ int, s *goquery.Selection) {
		// Only the innermost section holds a bill
		if s.Find(selBillSection).Length() > 0 {
			return
		}
		amountText := strings.TrimSpace(s.Find(selBillTotal).Last().Text())
		if amountText == "" {
			return
		}
		amount, err := parseAmount(amountText)
		if err != nil {
			return
		}

		date := ref.Date
		if dm := billDatePattern.FindStringSubmatch(strings.TrimSpace(s.Find(selBillDate).Text())); dm != nil {
			date = normalizeDate(dm[1])
		}

		refund := strings.Contains(s.Find(selCategoryLabel).Text(), refundedLabelText)

		var charged []matcher.Item
		for _, item := range items {
			if item.Refunded == refund {
				charged = append(charged, item)
			}
		}

		order.Charges = append(order.Charges, matcher.OrderCharge{
			Amount: math.Abs(amount),
			Date:   date,
			Refund: refund,
			Items:  charged,
		})
	})

	return order, nil
}

// lowestYear returns the oldest "year-YYYY" filter option, or 0
func lowestYear(doc *goquery.Document) int {
	var years []int
	doc.Find(selYearOptions).Each(func(_ int, s *goquery.Selection) {
		value, _ := s.Attr("value")
		value = strings.TrimSpace(value)
		if !strings.Contains(value, "year") {
			return
		}
		if y, err := strconv.Atoi(strings.TrimPrefix(value, "year-")); err == nil {
			years = append(years, y)
		}
	})
	if len(years) == 0 {
		return 0
	}
	sort.Ints(years)
	return years[0]
}

// parseAmount strips everything but digits, dot and minus, e.g. "$1,024.50"
func parseAmount(s string) (float64, error) {
	cleaned := nonAmountPattern.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" {
		return 0, fmt.Errorf("no amount in %q", s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// normalizeDate rewrites "Jan 02, 2024" as "2024-01-02"; unparseable input is kept
func normalizeDate(s string) string {
	if t, ok := matcher.ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return s
}
