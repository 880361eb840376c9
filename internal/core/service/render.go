package service

import (
	"fmt"
	"strings"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

const (
	msgWelcome          = "Welcome to our store!"
	msgGenericFailure   = "Something went wrong, please try again later."
	msgInvalidData      = "Error: invalid data."
	msgNoItems          = "There are no items yet."
	msgChooseItem       = "Choose an item:"
	msgItemUnavailable  = "This item is no longer available."
	msgEmptyCart        = "Your cart is empty."
	msgNotInCart        = "This item is not in your cart."
	msgChooseRemoval    = "Choose an item to remove:"
	msgEnterNumber      = "Please enter a number."
	msgPermissionDenied = "You do not have permission to use this command."
	msgAskAdminItemID   = "Send the id of the item you want to remove."
	msgEnterItemID      = "Please enter a valid item id."
	msgNotUnderstood    = "I did not understand that. Use /help to see the available commands."
	msgStaleButton      = "This button is no longer active."
	msgFinishFirst      = "Finish the current step first or send /cancel."
	msgCancelled        = "Cancelled."
	msgNothingToCancel  = "Nothing to cancel."
	msgPaymentThanks    = "Thank you for your purchase! Your order has been placed."

	maxRemovalButtons = 5
)

// CommandInfo describes a command for help texts and the platform's command
// menu.
type CommandInfo struct {
	Command     domain.Command
	Description string
	AdminOnly   bool
}

var commands = []CommandInfo{
	{domain.CommandStart, "Welcome message", false},
	{domain.CommandHelp, "List of available commands", false},
	{domain.CommandListItems, "Browse the catalog", false},
	{domain.CommandViewCart, "View your cart", false},
	{domain.CommandRemoveFromCart, "Remove an item from your cart", false},
	{domain.CommandCancel, "Abandon the current step", false},
	{domain.CommandAdminRemoveItem, "Remove an item from the catalog (administrator only)", true},
}

// AvailableCommands lists the commands a user may see; admin-only commands
// are included only for the administrator.
func AvailableCommands(isAdmin bool) []CommandInfo {
	out := make([]CommandInfo, 0, len(commands))
	for _, c := range commands {
		if c.AdminOnly && !isAdmin {
			continue
		}
		out = append(out, c)
	}
	return out
}

func commandList(isAdmin bool) string {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, c := range AvailableCommands(isAdmin) {
		fmt.Fprintf(&b, "\n/%s - %s", c.Command, c.Description)
	}
	return b.String()
}

func catalogReply(items []domain.Item) domain.Reply {
	if len(items) == 0 {
		return domain.Reply{Text: msgNoItems}
	}
	keyboard := make([][]domain.Button, 0, len(items))
	for _, item := range items {
		keyboard = append(keyboard, []domain.Button{
			{Text: item.Name, Payload: domain.SelectPayload(item.ID)},
		})
	}
	return domain.Reply{Text: msgChooseItem, Keyboard: keyboard}
}

// adminCatalogText lists items with their ids so the administrator can pick one.
func adminCatalogText(items []domain.Item, currency string) string {
	if len(items) == 0 {
		return msgNoItems
	}
	var b strings.Builder
	b.WriteString("Catalog:")
	for _, item := range items {
		fmt.Fprintf(&b, "\n#%d %s - %s", item.ID, item.Name, domain.FormatMoney(item.Price, currency))
	}
	return b.String()
}

func itemCardReply(item domain.Item, st domain.SelectingQuantity, currency string) domain.Reply {
	text := fmt.Sprintf("%s\n\n%s\n\nPrice: %s", item.Name, item.Description, domain.FormatMoney(item.Price, currency))
	return domain.Reply{
		Text: text,
		Keyboard: [][]domain.Button{
			{
				{Text: "-", Payload: domain.DecrementPayload(item.ID)},
				{Text: fmt.Sprint(st.Quantity), Payload: domain.ShowQuantityPayload(item.ID)},
				{Text: "+", Payload: domain.IncrementPayload(item.ID)},
			},
			{{Text: "Add to cart", Payload: domain.ConfirmAddPayload(item.ID)}},
			{{Text: "Cancel", Payload: domain.CancelPayload()}},
		},
		Edit: true,
	}
}

func cartReply(entries []domain.CartEntry, currency string) domain.Reply {
	var b strings.Builder
	b.WriteString("Your cart:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s - %s (Quantity: %d)", e.Item.Name, domain.FormatMoney(e.Item.Price, currency), e.Quantity)
	}
	fmt.Fprintf(&b, "\n\nTotal: %s", domain.FormatMoney(domain.CartTotal(entries), currency))

	return domain.Reply{
		Text:     b.String(),
		Keyboard: [][]domain.Button{{{Text: "Buy", Payload: domain.CheckoutPayload()}}},
	}
}

func removalListReply(entries []domain.CartEntry) domain.Reply {
	keyboard := make([][]domain.Button, 0, len(entries))
	for _, e := range entries {
		keyboard = append(keyboard, []domain.Button{{
			Text:    fmt.Sprintf("Remove %s (Quantity: %d)", e.Item.Name, e.Quantity),
			Payload: domain.RemovePayload(e.Item.ID),
		}})
	}
	return domain.Reply{Text: msgChooseRemoval, Keyboard: keyboard}
}

// removalPromptReply offers quick amount buttons; any amount in range may
// also be typed.
func removalPromptReply(entry domain.CartEntry) domain.Reply {
	row := make([]domain.Button, 0, maxRemovalButtons)
	for n := 1; n <= min(entry.Quantity, maxRemovalButtons); n++ {
		row = append(row, domain.Button{Text: fmt.Sprint(n), Payload: domain.RemoveAmountPayload(entry.Item.ID, n)})
	}
	keyboard := [][]domain.Button{row}
	if entry.Quantity > maxRemovalButtons {
		keyboard = append(keyboard, []domain.Button{{
			Text:    fmt.Sprintf("All (%d)", entry.Quantity),
			Payload: domain.RemoveAmountPayload(entry.Item.ID, entry.Quantity),
		}})
	}
	keyboard = append(keyboard, []domain.Button{{Text: "Cancel", Payload: domain.CancelPayload()}})

	return domain.Reply{
		Text:     fmt.Sprintf("How many %s do you want to remove? (Maximum: %d)", entry.Item.Name, entry.Quantity),
		Keyboard: keyboard,
		Edit:     true,
	}
}

func rangePrompt(maxQuantity int) string {
	return fmt.Sprintf("Enter a number from 1 to %d.", maxQuantity)
}
