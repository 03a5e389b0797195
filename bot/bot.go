package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spin-rewards-service/models"
	"spin-rewards-service/services"
	"spin-rewards-service/storage"
)

// Bot is the Telegram front end. It drives the same service layer as the web
// API and doubles as the services.Notifier implementation, so post-commit
// messages to the admin and to users go out over the same connection.
type Bot struct {
	api         *tgbotapi.BotAPI
	adminChatID int64

	accounts    *services.AccountService
	spins       *services.SpinService
	referrals   *services.ReferralService
	withdrawals *services.WithdrawalService

	mu              sync.Mutex
	awaitingDetails map[int64]struct{}
}

var _ services.Notifier = (*Bot)(nil)

func New(token string, adminChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	log.Printf("Telegram bot authorized as @%s", api.Self.UserName)
	return &Bot{
		api:             api,
		adminChatID:     adminChatID,
		awaitingDetails: make(map[int64]struct{}),
	}, nil
}

// Attach wires the service layer. Must be called before Run; the withdrawal
// service is constructed after the bot because the bot is its notifier.
func (b *Bot) Attach(accounts *services.AccountService, spins *services.SpinService, referrals *services.ReferralService, withdrawals *services.WithdrawalService) {
	b.accounts = accounts
	b.spins = spins
	b.referrals = referrals
	b.withdrawals = withdrawals
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("Telegram bot stopped.")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			} else if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			}
		}
	}
}

// Notifier implementation --------------------------------------------------

func (b *Bot) NotifyAdmin(req models.WithdrawalRequest, displayName string) {
	text := fmt.Sprintf(
		"💸 *New Withdrawal Request*\n"+
			"User ID: %s\n"+
			"Name: %s\n"+
			"Payout Details: %s\n"+
			"Amount: ₹%d\n"+
			"Action: /confirm_%s or /reject_%s",
		req.UserID, displayName, req.PayoutDetails, req.RequestedAmount, req.UserID, req.UserID,
	)
	msg := tgbotapi.NewMessage(b.adminChatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to notify admin about withdrawal %s: %v", req.ID, err)
	}
}

func (b *Bot) NotifyUser(userID, message string) {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		// Account created via the web front end, nothing to deliver to.
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		log.Printf("failed to notify user %s: %v", userID, err)
	}
}

// Inbound messages ----------------------------------------------------------

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		cmd := msg.Command()
		switch {
		case cmd == "start":
			b.handleStart(ctx, msg, strings.TrimSpace(msg.CommandArguments()))
		case cmd == "confirm" || strings.HasPrefix(cmd, "confirm_"):
			b.handleResolve(ctx, msg, models.DecisionConfirm)
		case cmd == "reject" || strings.HasPrefix(cmd, "reject_"):
			b.handleResolve(ctx, msg, models.DecisionReject)
		}
		return
	}
	b.mu.Lock()
	_, awaiting := b.awaitingDetails[msg.Chat.ID]
	b.mu.Unlock()
	if awaiting {
		b.handleWithdrawalDetails(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message, referrerCode string) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	name := msg.From.UserName
	if name == "" {
		name = msg.From.FirstName
	}

	if referrerCode != "" {
		referrerName, err := b.referrals.ApplyReferral(ctx, referrerCode, userID, name)
		switch {
		case err == nil:
			b.reply(msg.Chat.ID, fmt.Sprintf("🎉 You've joined via %s's referral! Start spinning now!", referrerName))
			b.sendMainMenu(msg.Chat.ID, name)
			return
		case errors.Is(err, services.ErrInvalidCode), errors.Is(err, services.ErrSelfReferral):
			b.reply(msg.Chat.ID, "Invalid or self-referral link!")
			return
		case errors.Is(err, services.ErrAlreadyReferred):
			// Returning user following a referral link again.
		default:
			log.Printf("apply_referral failed for %s: %v", userID, err)
			b.reply(msg.Chat.ID, "Something went wrong, please try again.")
			return
		}
	}

	if _, _, err := b.accounts.CreateOrGetAccount(ctx, userID, name); err != nil {
		log.Printf("create_or_get_account failed for %s: %v", userID, err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.sendMainMenu(msg.Chat.ID, name)
}

func (b *Bot) handleResolve(ctx context.Context, msg *tgbotapi.Message, decision models.WithdrawalDecision) {
	actor := strconv.FormatInt(msg.From.ID, 10)

	// Accept both "/confirm <user_id>" and the legacy "/confirm_<user_id>".
	target := strings.TrimSpace(msg.CommandArguments())
	if target == "" {
		cmd := msg.Command()
		if i := strings.IndexByte(cmd, '_'); i >= 0 {
			target = cmd[i+1:]
		}
	}
	if target == "" {
		b.reply(msg.Chat.ID, fmt.Sprintf("Usage: /%s <user_id>", decision))
		return
	}

	_, err := b.withdrawals.Resolve(ctx, actor, target, decision)
	switch {
	case err == nil:
		b.reply(msg.Chat.ID, fmt.Sprintf("Withdrawal for user %s %sed!", target, decision))
	case errors.Is(err, services.ErrUnauthorized):
		// Non-admin poking at admin commands gets silence, as before.
	case errors.Is(err, storage.ErrNoPending), errors.Is(err, storage.ErrNotFound):
		b.reply(msg.Chat.ID, fmt.Sprintf("No pending withdrawal for user %s.", target))
	default:
		log.Printf("resolve_withdrawal %s failed: %v", target, err)
		b.reply(msg.Chat.ID, "Resolution failed, please retry.")
	}
}

func (b *Bot) handleWithdrawalDetails(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)

	_, err := b.withdrawals.Submit(ctx, userID, msg.Text)
	b.mu.Lock()
	delete(b.awaitingDetails, msg.Chat.ID)
	b.mu.Unlock()

	switch {
	case err == nil:
		b.reply(msg.Chat.ID, "✅ Your withdrawal request has been sent to the admin. You'll be notified once processed!")
	case errors.Is(err, storage.ErrPendingExists):
		b.reply(msg.Chat.ID, "You already have a pending withdrawal request. Please wait for the admin.")
	case errors.Is(err, services.ErrNotEligible):
		b.reply(msg.Chat.ID, "🔒 You need at least 15 referrals and ₹100 balance to withdraw!")
	case errors.Is(err, services.ErrMissingDetails):
		b.reply(msg.Chat.ID, "Please enter your UPI ID and Name (e.g., name@upi):")
	default:
		log.Printf("submit_withdrawal failed for %s: %v", userID, err)
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")
	}
}

// Callbacks ------------------------------------------------------------------

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("callback ack failed: %v", err)
	}
	chatID := cq.Message.Chat.ID
	userID := strconv.FormatInt(cq.From.ID, 10)

	switch parseAction(cq.Data) {
	case actionSpin:
		b.doSpin(ctx, chatID, userID)
	case actionDashboard:
		b.showDashboard(ctx, chatID, userID)
	case actionRefer:
		b.showReferral(ctx, chatID, userID)
	case actionWithdraw:
		b.initiateWithdrawal(ctx, chatID, userID)
	case actionConfirmWithdraw:
		b.mu.Lock()
		b.awaitingDetails[chatID] = struct{}{}
		b.mu.Unlock()
		b.reply(chatID, "Please enter your UPI ID and Name (e.g., name@upi):")
	case actionHome:
		b.sendMainMenu(chatID, "")
	case actionUnknown:
		log.Printf("unknown callback payload %q from chat %d", cq.Data, chatID)
	}
}

func (b *Bot) doSpin(ctx context.Context, chatID int64, userID string) {
	res, err := b.spins.Spin(ctx, userID)
	if errors.Is(err, services.ErrNoSpinsLeft) {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👥 Refer", dataRefer),
			),
		)
		b.replyWithMarkup(chatID, "No spins left! Invite friends to earn more spins. 👥", markup)
		return
	}
	if err != nil {
		log.Printf("spin failed for %s: %v", userID, err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}

	text := fmt.Sprintf(
		"🎰 Spin Result: You won ₹%d! 🎉\nSpins Left: %d\nCurrent Balance: ₹%d",
		res.Reward, res.SpinsRemaining, res.Balance,
	)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Spin Again", dataSpin),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Home", dataHome),
		),
	)
	b.replyWithMarkup(chatID, text, markup)
}

func (b *Bot) showDashboard(ctx context.Context, chatID int64, userID string) {
	view, err := b.accounts.GetSnapshot(ctx, userID)
	if err != nil {
		b.reply(chatID, "Account not found. Send /start first.")
		return
	}

	status := "🔒 Need 15 referrals and ₹100 to withdraw"
	if len(view.ReferredUserIDs) >= models.WithdrawalMinReferrals && view.Balance >= models.WithdrawalMinBalance {
		status = "✅ Ready to withdraw!"
	}
	text := fmt.Sprintf(
		"📊 *Your Dashboard* 📊\n"+
			"💰 Balance: ₹%d\n"+
			"🎰 Spins Left: %d\n"+
			"👥 Referrals: %d/%d\n"+
			"🎁 Referral Earnings: ₹%d\n%s",
		view.Balance, view.SpinsRemaining, len(view.ReferredUserIDs),
		models.WithdrawalMinReferrals, view.ReferralEarnings, status,
	)
	b.replyMarkdown(chatID, text, homeKeyboard())
}

func (b *Bot) showReferral(ctx context.Context, chatID int64, userID string) {
	view, err := b.accounts.GetSnapshot(ctx, userID)
	if err != nil {
		b.reply(chatID, "Account not found. Send /start first.")
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s", b.api.Self.UserName, view.ReferralCode)
	text := fmt.Sprintf(
		"👥 *Invite Friends & Earn!*\n"+
			"Share your referral link below and earn 1 spin per referral!\n"+
			"📎 Referral Link: `%s`\n"+
			"👥 Current Referrals: %d/%d\n"+
			"💡 *Note*: You need %d referrals to unlock ₹%d withdrawal.",
		link, len(view.ReferredUserIDs), models.WithdrawalMinReferrals,
		models.WithdrawalMinReferrals, models.WithdrawalMinBalance,
	)
	b.replyMarkdown(chatID, text, homeKeyboard())
}

func (b *Bot) initiateWithdrawal(ctx context.Context, chatID int64, userID string) {
	view, err := b.accounts.GetSnapshot(ctx, userID)
	if err != nil {
		b.reply(chatID, "Account not found. Send /start first.")
		return
	}
	eligible, err := b.withdrawals.CheckEligibility(ctx, userID)
	if err != nil || !eligible {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👥 Refer", dataRefer),
			),
		)
		b.replyWithMarkup(chatID, "🔒 You need at least 15 referrals and ₹100 balance to withdraw!", markup)
		return
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Confirm Withdrawal", dataConfirmWithdraw),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Home", dataHome),
		),
	)
	b.replyWithMarkup(chatID, fmt.Sprintf("💸 Your balance: ₹%d\nClick below to proceed with withdrawal.", view.Balance), markup)
}

// Outbound helpers -----------------------------------------------------------

func (b *Bot) sendMainMenu(chatID int64, name string) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎰 Spin & Win", dataSpin),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Dashboard", dataDashboard),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Refer Friends", dataRefer),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Withdraw", dataWithdraw),
		),
	)

	text := "🏠 Welcome back! Choose an option:"
	if name != "" {
		text = fmt.Sprintf(
			"Welcome, %s! 🎉\nPlay Spin & Win to earn rewards! You get 3 free spins daily. "+
				"Invite friends to earn more spins and unlock withdrawals! 🚀", name)
	}
	b.replyWithMarkup(chatID, text, markup)
}

func homeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Home", dataHome),
		),
	)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send to chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send to chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) replyMarkdown(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send to chat %d failed: %v", chatID, err)
	}
}
