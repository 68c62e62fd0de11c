package scenes

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/internal/shop"
)

const dateButtonLayout = "Mon, 2 Jan"

func welcomeText(shopName string) string {
	return fmt.Sprintf("Welcome to %s! 👋\nBrowse the categories to start an order or open your cart.", format.Bold(shopName))
}

func voucherText(code string) string {
	return fmt.Sprintf("🎁 Here is a voucher for your next visit: <code>%s</code>", format.EscapeHTML(code))
}

func categoriesText(n int) string {
	if n == 0 {
		return "There are no categories yet. Please check back later."
	}
	return "Pick a category 👇"
}

func productsText(items []shop.Product, currency string) string {
	if len(items) == 0 {
		return "This category has no products yet."
	}
	lines := []string{format.Bold("Products")}
	for _, p := range items {
		lines = append(lines, fmt.Sprintf("• %s: %s", format.EscapeHTML(p.Name), format.Money(p.Price, currency)))
	}
	lines = append(lines, "", "Tap a product to add it to your cart.")
	return strings.Join(lines, "\n")
}

func addLabel(name string) string {
	return addPrefix + name
}

func cartText(items []shop.CartItem, currency string) string {
	if len(items) == 0 {
		return "🛒 Your cart is empty."
	}
	lines := []string{format.Bold("🛒 Your cart")}
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s x%d: %s", format.EscapeHTML(it.Name), it.Quantity, format.Money(it.Subtotal(), currency)))
	}
	lines = append(lines, "", "Total: "+format.Bold(format.Money(shop.CartTotal(items), currency)))
	return strings.Join(lines, "\n")
}

func invoiceDescription(items []shop.CartItem) string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
	}
	desc := strings.Join(names, ", ")
	// Telegram caps invoice descriptions at 255 characters.
	if r := []rune(desc); len(r) > 255 {
		desc = string(r[:254]) + "…"
	}
	return desc
}

func paymentText(enabled bool, total int64, currency string) string {
	if enabled {
		return fmt.Sprintf("Please pay %s using the invoice above.", format.Bold(format.Money(total, currency)))
	}
	return fmt.Sprintf("Online payment is not available. You will pay %s on delivery.\nTap %s to continue.",
		format.Bold(format.Money(total, currency)), format.Bold(LabelConfirmOrder))
}

func paymentMismatchText() string {
	return "This payment does not belong to the current order."
}

func dateText() string {
	return "📅 When should we deliver? Pick a date or type one, e.g. 24.12 or 2026-12-24."
}

func datePastText() string {
	return "That date has already passed. Please choose a date from today onwards."
}

func dateInvalidText() string {
	return "I could not read that date. Try a format like 24.12 or 2026-12-24."
}

func dateButtons(now time.Time) []string {
	out := make([]string, 0, 3)
	for i := 1; i <= 3; i++ {
		out = append(out, now.AddDate(0, 0, i).Format(dateButtonLayout))
	}
	return out
}

func noteText() string {
	return fmt.Sprintf("📝 Any notes for your order? Send them as a message or tap %s.", format.Bold(LabelSkip))
}

func confirmationText(o shop.Order) string {
	payment := "Payment: on delivery"
	if o.Paid {
		payment = "Payment: received ✅"
	}
	return format.Lines(
		fmt.Sprintf("🎉 Thank you! Your order %s has been placed.", format.Bold(fmt.Sprintf("#%d", o.ID))),
		"Total: "+format.Bold(format.Money(o.Total, o.Currency)),
		payment,
		"Delivery: "+o.DeliveryDate.Format("Mon, 02 Jan 2006"),
	)
}

func placedText() string {
	return "Your order has already been placed. Send /start to shop again."
}
