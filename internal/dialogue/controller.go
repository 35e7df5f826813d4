package dialogue

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rcastellanos/tavi/internal/nlu"
	"github.com/rcastellanos/tavi/internal/payments"
)

// Config parameterizes one dialogue session. The three original prototype
// variants differ only in these values.
type Config struct {
	AssistantName  string
	BankName       string
	Account        string
	AccountHolder  string
	PIN            string
	PINHintAfter   int // failed attempts before the guidance hint, no hard lockout
	InitialBalance float64
	// AuthFailureRate is the simulated probability that an authorization
	// attempt fails, independent across retries.
	AuthFailureRate float64

	// Artificial latencies before timed transitions.
	AuthDelay      time.Duration
	BiometricDelay time.Duration
	AuthorizeDelay time.Duration
	SettleDelay    time.Duration
	DispatchDelay  time.Duration

	Contacts []Contact
}

// DefaultConfig returns the demo defaults.
func DefaultConfig() Config {
	return Config{
		AssistantName:   "TAVI",
		BankName:        "Banco Ejemplo",
		Account:         "123456789012345678",
		AccountHolder:   "Cliente Banco",
		PIN:             "1234",
		PINHintAfter:    3,
		InitialBalance:  3500.00,
		AuthFailureRate: 0.25,
		AuthDelay:       700 * time.Millisecond,
		BiometricDelay:  time.Second,
		AuthorizeDelay:  700 * time.Millisecond,
		SettleDelay:     1400 * time.Millisecond,
		DispatchDelay:   300 * time.Millisecond,
		Contacts:        DefaultContacts(),
	}
}

// Deps carries the controller's collaborators. Nil fields get defaults; a nil
// Interpreter or Replier runs in pure fallback mode.
type Deps struct {
	Interpreter *nlu.Interpreter
	Replier     *nlu.Replier
	Sink        Sink
	Scheduler   Scheduler
	Rand        func() float64
	Logger      *log.Logger
}

// Event names passed to OnEvent.
const (
	EventAuthSucceeded     = "auth_succeeded"
	EventAuthFailed        = "auth_failed"
	EventTransferConfirmed = "transfer_confirmed"
	EventTransferFailed    = "transfer_failed"
	EventFundsInsufficient = "funds_insufficient"
	EventCollectGenerated  = "collect_generated"
	EventContactAdded      = "contact_added"
)

// SettledEvent describes one completed transfer.
type SettledEvent struct {
	Amount    float64
	Recipient Contact
	CEP       string
	Balance   float64
}

type pendingDispatch struct {
	res  nlu.Result
	text string
}

// Controller owns one conversation: the current step, the account balance,
// the contact book, and the transaction in progress. One dialogue per
// session; no two transitions are in flight concurrently. All balance reads
// and the single post-settlement write are sequenced through here.
type Controller struct {
	cfg     Config
	interp  *nlu.Interpreter
	replier *nlu.Replier
	sink    Sink
	sched   Scheduler
	randFn  func() float64
	logger  *log.Logger

	// OnSettled, when set, is invoked (on its own goroutine) after each
	// completed settlement. OnIntent observes every interpreted utterance.
	// OnEvent observes the remaining flow milestones (auth, confirmation,
	// failures, collects, new contacts); it runs with the controller lock
	// held and must not call back in. Set all three before Start.
	OnSettled func(SettledEvent)
	OnIntent  func(res nlu.Result, userText string)
	OnEvent   func(name string, data map[string]any)

	mu          sync.Mutex
	step        Step
	epoch       int // bumped on cancel/reset to invalidate pending timers
	authed      bool
	pinAttempts int
	balance     float64
	online      bool
	dimoLinked  bool
	contacts    *ContactBook

	// Transaction in progress.
	recipient *Contact
	amount    float64
	concept   string
	cep       string

	pending *pendingDispatch
}

// New creates a controller in the welcome state.
func New(cfg Config, deps Deps) *Controller {
	if deps.Interpreter == nil {
		deps.Interpreter = nlu.NewInterpreter(nlu.Config{})
	}
	if deps.Replier == nil {
		deps.Replier = nlu.NewReplier(nlu.Config{})
	}
	if deps.Scheduler == nil {
		deps.Scheduler = TimerScheduler{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.Float64
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Sink == nil {
		deps.Sink = SinkFunc(func(Turn) {})
	}
	return &Controller{
		cfg:      cfg,
		interp:   deps.Interpreter,
		replier:  deps.Replier,
		sink:     deps.Sink,
		sched:    deps.Scheduler,
		randFn:   deps.Rand,
		logger:   deps.Logger,
		step:     StepWelcome,
		balance:  cfg.InitialBalance,
		online:   true,
		contacts: NewContactBook(cfg.Contacts),
	}
}

// Start emits the welcome turn with the authentication choices.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.push(Turn{
		Speaker: SpeakerAssistant,
		Text: fmt.Sprintf("Bienvenido a %s, su asistente de pagos seguro.\nPara comenzar, necesito verificar su identidad.",
			c.cfg.AssistantName),
		Options: authOptions(),
	})
}

// Step returns the current dialogue step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Balance returns the current account balance.
func (c *Controller) Balance() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Authed reports whether the session has verified identity.
func (c *Controller) Authed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// Text handles one free-text utterance: interpret, then dispatch. Commands
// arriving before authentication are queued and dispatched right after it.
func (c *Controller) Text(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	c.push(Turn{Speaker: SpeakerUser, Text: text})
	authed := c.authed
	c.mu.Unlock()

	res := c.interp.Interpret(ctx, text)
	if c.OnIntent != nil {
		c.OnIntent(res, text)
	}

	if !authed {
		c.mu.Lock()
		c.pending = &pendingDispatch{res: res, text: text}
		c.setStep(StepAuth)
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "Antes de continuar, autentíquese.",
			Options: authOptions(),
		})
		c.mu.Unlock()
		return
	}
	c.dispatch(ctx, res, text)
}

// Pick handles a quick-reply selection.
func (c *Controller) Pick(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch id {
	case "auth.pin":
		if c.authed {
			return
		}
		c.echoUser("Ingresar NIP")
		c.setStep(StepAuth)
		c.push(Turn{Speaker: SpeakerAssistant, Text: "Ingrese su NIP de 4 dígitos.", Prompt: PromptPIN})
	case "auth.bio":
		if c.authed {
			return
		}
		c.echoUser("Usar biometría")
		c.setStep(StepAuth)
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "Seleccione el método biométrico:",
			Options: []Option{{ID: "bio.finger", Label: "Huella digital"}, {ID: "bio.face", Label: "Face ID"}},
		})
	case "bio.finger":
		if c.step != StepAuth {
			return
		}
		c.echoUser("Huella digital")
		c.startBiometric("su dedo en el lector", "Huella verificada")
	case "bio.face":
		if c.step != StepAuth {
			return
		}
		c.echoUser("Face ID")
		c.startBiometric("su rostro frente a la cámara", "Face ID verificado")

	case "menu.send":
		if !c.atMenu() {
			return
		}
		c.echoUser("Enviar dinero")
		c.openTransfer()
	case "menu.balance":
		if !c.atMenu() {
			return
		}
		c.echoUser("Consultar saldo")
		c.say("Su saldo actual es de " + payments.Currency(c.balance) + ".")
	case "menu.share":
		if !c.atMenu() {
			return
		}
		c.echoUser("Mi CLABE / QR")
		c.push(Turn{Speaker: SpeakerAssistant, Text: "Genere un QR de cobro con monto y concepto.", Prompt: PromptCollect})

	case "confirm.send":
		if c.step != StepConfirm {
			return
		}
		c.echoUser("Confirmar y Enviar")
		c.emit(EventTransferConfirmed, map[string]any{
			"amount":    c.amount,
			"recipient": c.recipient.Name,
		})
		c.authorize()
	case "confirm.cancel":
		if c.step != StepConfirm {
			return
		}
		c.echoUser("Cancelar")
		c.cancelOperation()

	case "funds.available":
		if c.step != StepInsufficient {
			return
		}
		// Recomputed at selection time, not cached from the failed attempt.
		available := math.Max(0, payments.Round2(c.balance))
		if available <= 0 {
			c.say("No cuenta con saldo disponible para enviar.")
			return
		}
		c.echoUser("Enviar saldo disponible")
		c.amount = available
		c.review()
	case "funds.retry":
		if c.step != StepInsufficient {
			return
		}
		c.echoUser("Intentar con otro monto")
		if c.recipient != nil {
			c.askAmount(c.recipient, nil)
		} else {
			c.openTransfer()
		}
	case "funds.cancel":
		if c.step != StepInsufficient {
			return
		}
		c.echoUser("Cancelar")
		c.cancelOperation()
	case "net.cancel":
		// Only valid at the retry prompt; a settlement already in flight
		// cannot be cancelled.
		if c.step != StepAuthorize {
			return
		}
		c.echoUser("Cancelar")
		c.cancelOperation()

	case "net.retry":
		if c.step != StepAuthorize {
			return
		}
		c.echoUser("Reintentar")
		c.authorize()

	case "success.again":
		if c.step != StepSuccess && c.step != StepInsufficient {
			return
		}
		c.echoUser("Realizar otra operación")
		c.resetToMenu()
	case "success.done":
		c.echoUser("Finalizar")
		c.say("Gracias por usar " + c.cfg.AssistantName + ". Hasta pronto.")

	case "dimo.link":
		if !c.authed {
			return
		}
		c.echoUser("Vincular ahora")
		c.dimoLinked = true
		c.say("Listo. Dimo quedó vinculado y ya puede enviar a los contactos de su teléfono.")
	case "dimo.later":
		if !c.authed {
			return
		}
		c.echoUser("Después")
		c.say("De acuerdo, puede vincular Dimo más tarde cuando lo necesite.")

	default:
		if c.authed && c.step == StepPickRecipient {
			if ct := c.contacts.ByID(id); ct != nil {
				c.echoUser(ct.Name)
				c.recipient = ct
				c.askAmount(ct, nil)
				return
			}
		}
		c.logger.Printf("dialogue: unhandled pick %q at step %s", id, c.step)
	}
}

// SubmitPIN verifies the PIN entered during authentication.
func (c *Controller) SubmitPIN(pin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepAuth {
		return
	}
	if pin == c.cfg.PIN {
		c.pinAttempts = 0
		c.say("NIP verificado.")
		c.completeAuth("NIP")
		return
	}
	c.pinAttempts++
	c.emit(EventAuthFailed, map[string]any{"method": "NIP", "attempts": c.pinAttempts})
	msg := "NIP incorrecto. Inténtelo de nuevo."
	if c.pinAttempts >= c.cfg.PINHintAfter {
		msg += " Por seguridad, use biometría o espere 30s."
	}
	c.push(Turn{Speaker: SpeakerAssistant, Text: msg, Alert: true, Prompt: PromptPIN})
}

// SubmitAmount confirms the transfer amount. Non-positive values are rejected
// at this boundary; the flow never reaches the concept step with an invalid
// amount.
func (c *Controller) SubmitAmount(value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepAmount {
		return
	}
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "Ingrese un monto válido mayor a $0.00 MXN.",
			Alert:   true,
			Prompt:  PromptAmount,
		})
		return
	}
	c.push(Turn{Speaker: SpeakerUser, Text: payments.Currency(value)})
	c.amount = value
	// A concept already carried by the interpreted utterance skips the prompt.
	if c.concept != "" {
		c.review()
		return
	}
	c.askConcept()
}

// SubmitConcept records the optional payment concept; an empty string skips
// it.
func (c *Controller) SubmitConcept(concept string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepConcept {
		return
	}
	c.concept = strings.TrimSpace(concept)
	if c.concept != "" {
		c.push(Turn{Speaker: SpeakerUser, Text: c.concept})
	} else {
		c.echoUser("Omitir")
	}
	c.review()
}

// SearchRecipient resolves a free-text contact query during recipient
// selection.
func (c *Controller) SearchRecipient(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepPickRecipient {
		return
	}
	ct := c.contacts.Find(query)
	if ct == nil {
		c.say("No encontré ese contacto. Intente con otro nombre o alias.")
		return
	}
	c.echoUser(ct.Name)
	c.recipient = ct
	c.askAmount(ct, nil)
}

// SubmitContact creates a contact through the inline new-contact flow and
// selects it as the transfer recipient.
func (c *Controller) SubmitContact(name, alias, bank string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepPickRecipient {
		return
	}
	ct, err := c.contacts.Add(name, alias, bank)
	if err != nil {
		c.push(Turn{Speaker: SpeakerAssistant, Text: "Complete nombre, alias y banco.", Alert: true, Prompt: PromptContact})
		return
	}
	c.emit(EventContactAdded, map[string]any{"name": ct.Name, "bank": ct.Bank})
	c.echoUser(ct.Name)
	c.recipient = c.contacts.ByID(ct.ID)
	c.askAmount(c.recipient, nil)
}

// Collect emits a collection-request payload for the QR renderer and share
// sheet.
func (c *Controller) Collect(amount float64, concept string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount <= 0 {
		c.push(Turn{Speaker: SpeakerAssistant, Text: "Ingrese un monto válido mayor a $0.00 MXN.", Alert: true, Prompt: PromptCollect})
		return
	}
	c.pushCollect(amount, concept)
}

// Deposit credits the account; the host UI drives it outside the transfer
// flow.
func (c *Controller) Deposit(amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		c.say("Ingrese un monto válido mayor a $0.00 MXN.")
		return
	}
	c.balance += amount
	c.say(fmt.Sprintf("Depósito recibido por %s. Su nuevo saldo es de %s.",
		payments.Currency(amount), payments.Currency(c.balance)))
}

// SetOnline records the connectivity signal from the host. Going offline
// blocks the authorization boundary; reconnecting unblocks it without
// queueing an automatic retry.
func (c *Controller) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.online
	c.online = online
	if was == online {
		return
	}
	if !online {
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "Está sin conexión. Las operaciones de red están deshabilitadas hasta que se restablezca la conexión.",
			Alert:   true,
		})
		return
	}
	c.say("Conexión restablecida. Puede continuar con su operación.")
}

// Reset returns an authenticated session to the menu, clearing the dialogue
// history state but preserving the balance and authentication.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetToMenu()
}

// --- internal flow, lock held ---

func (c *Controller) push(t Turn) {
	t.Step = c.step
	c.sink.Push(t)
}

func (c *Controller) say(text string) {
	c.push(Turn{Speaker: SpeakerAssistant, Text: text})
}

func (c *Controller) echoUser(label string) {
	c.push(Turn{Speaker: SpeakerUser, Text: label})
}

func (c *Controller) emit(name string, data map[string]any) {
	if c.OnEvent != nil {
		c.OnEvent(name, data)
	}
}

func (c *Controller) atMenu() bool {
	return c.authed && c.step == StepMenu
}

func (c *Controller) setStep(s Step) {
	if c.step != s {
		c.logger.Printf("dialogue: step %s -> %s", c.step, s)
		c.step = s
	}
}

func authOptions() []Option {
	return []Option{
		{ID: "auth.pin", Label: "Ingresar NIP"},
		{ID: "auth.bio", Label: "Usar biometría"},
	}
}

func menuOptions() []Option {
	return []Option{
		{ID: "menu.send", Label: "Enviar dinero"},
		{ID: "menu.balance", Label: "Consultar saldo"},
		{ID: "menu.share", Label: "Mi CLABE / QR"},
	}
}

// after schedules f with the artificial delay d. The continuation re-checks
// the epoch and, when want is non-empty, the current step before applying its
// effect, so cancelled operations never resurrect. f runs with the lock held.
func (c *Controller) after(d time.Duration, want Step, f func()) {
	e := c.epoch
	c.sched.After(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != e || (want != "" && c.step != want) {
			return
		}
		f()
	})
}

func (c *Controller) startBiometric(place, verified string) {
	c.push(Turn{Speaker: SpeakerAssistant, Text: "Coloque " + place + "..."})
	c.after(c.cfg.BiometricDelay, StepAuth, func() {
		c.say(verified + ".")
		c.completeAuth("biometría")
	})
}

func (c *Controller) completeAuth(method string) {
	c.say("Para su seguridad, autenticando con " + method + "...")
	c.after(c.cfg.AuthDelay, StepAuth, func() {
		c.authed = true
		c.emit(EventAuthSucceeded, map[string]any{"method": method})
		c.setStep(StepMenu)
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "Gracias. Su identidad ha sido verificada.\n¿Cómo puedo ayudarle hoy?",
			Options: menuOptions(),
		})
		if c.pending != nil {
			p := c.pending
			c.pending = nil
			e := c.epoch
			c.sched.After(c.cfg.DispatchDelay, func() {
				c.mu.Lock()
				stale := c.epoch != e
				c.mu.Unlock()
				if !stale {
					c.dispatch(context.Background(), p.res, p.text)
				}
			})
		}
	})
}

func (c *Controller) openTransfer() {
	c.recipient = nil
	c.concept = ""
	c.setStep(StepPickRecipient)
	all := c.contacts.All()
	n := len(all)
	if n > 5 {
		n = 5
	}
	opts := make([]Option, 0, n)
	for _, ct := range all[:n] {
		opts = append(opts, Option{ID: ct.ID, Label: ct.Name})
	}
	c.push(Turn{
		Speaker: SpeakerAssistant,
		Text:    "¿A quién desea enviar dinero?",
		Options: opts,
		Prompt:  PromptRecipient,
	})
}

func (c *Controller) askAmount(r *Contact, initial *float64) {
	c.setStep(StepAmount)
	t := Turn{
		Speaker: SpeakerAssistant,
		Text:    "¿Cuánto desea enviar a " + r.Name + "?",
		Prompt:  PromptAmount,
	}
	if initial != nil && *initial > 0 {
		t.Prefill = payments.Currency(*initial)
	}
	c.push(t)
}

func (c *Controller) askConcept() {
	c.setStep(StepConcept)
	c.push(Turn{
		Speaker: SpeakerAssistant,
		Text:    "¿Desea agregar un concepto de pago? (opcional)",
		Prompt:  PromptConcept,
	})
}

func (c *Controller) review() {
	c.setStep(StepConfirm)
	concept := c.concept
	if concept == "" {
		concept = "(Sin concepto)"
	}
	c.push(Turn{
		Speaker: SpeakerAssistant,
		Text: strings.Join([]string{
			"Por favor, confirme los datos de la transferencia:",
			"Destinatario: " + c.recipient.Name,
			"Monto: " + payments.Currency(c.amount),
			"Concepto: " + concept,
			"Comisión: $0.00",
			"Total a enviar: " + payments.Currency(c.amount),
		}, "\n"),
		Options: []Option{
			{ID: "confirm.cancel", Label: "Cancelar"},
			{ID: "confirm.send", Label: "Confirmar y Enviar"},
		},
	})
}

func (c *Controller) authorize() {
	value := c.amount

	if c.balance < value {
		c.setStep(StepInsufficient)
		c.emit(EventFundsInsufficient, map[string]any{"amount": value, "balance": c.balance})
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text: fmt.Sprintf("Fondos insuficientes. Su saldo disponible es de %s y no es suficiente para enviar %s.",
				payments.Currency(c.balance), payments.Currency(value)),
			Alert: true,
			Options: []Option{
				{ID: "funds.available", Label: "Enviar saldo disponible"},
				{ID: "funds.retry", Label: "Intentar con otro monto"},
				{ID: "funds.cancel", Label: "Cancelar"},
			},
		})
		return
	}

	if !c.online {
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "Sin conexión. No es posible enviar mientras no haya conexión. Verifique su red e inténtelo de nuevo.",
			Alert:   true,
		})
		return
	}

	c.setStep(StepAuthorize)
	c.say("Para su seguridad, autorice la operación con su NIP.")
	c.after(c.cfg.AuthorizeDelay, StepAuthorize, func() {
		if c.randFn() < c.cfg.AuthFailureRate {
			// Simulated transient failure; balance untouched, retries are
			// independent draws.
			c.emit(EventTransferFailed, map[string]any{"amount": value, "reason": "network"})
			c.push(Turn{
				Speaker: SpeakerAssistant,
				Text:    "Error de red. No pudimos completar la operación por un problema de conexión o tiempo de espera. Su saldo no fue afectado.",
				Alert:   true,
				Options: []Option{
					{ID: "net.retry", Label: "Reintentar"},
					{ID: "net.cancel", Label: "Cancelar"},
				},
			})
			return
		}
		c.beginProcessing()
	})
}

func (c *Controller) beginProcessing() {
	c.setStep(StepProcessing)
	c.say("Procesando la transferencia de forma segura...")
	c.after(c.cfg.SettleDelay, StepProcessing, c.settle)
}

// settle applies the single balance mutation of a transfer and emits the
// receipt. Only reachable once per transaction: the step guard moves to
// success before any further timer can fire.
func (c *Controller) settle() {
	value := c.amount
	c.balance = math.Max(0, c.balance-value)
	c.cep = payments.GenCEP()
	c.setStep(StepSuccess)

	receipt := payments.Receipt{
		Amount:        value,
		Recipient:     c.recipient.Name,
		RecipientBank: c.recipient.Bank,
		IssuerBank:    c.cfg.BankName,
		CEP:           c.cep,
		Timestamp:     time.Now(),
	}
	c.push(Turn{
		Speaker: SpeakerAssistant,
		Text:    "Transferencia exitosa.",
		Receipt: &receipt,
		Options: []Option{
			{ID: "success.again", Label: "Realizar otra operación"},
			{ID: "success.done", Label: "Finalizar"},
		},
	})

	if c.OnSettled != nil {
		ev := SettledEvent{Amount: value, Recipient: *c.recipient, CEP: c.cep, Balance: c.balance}
		go c.OnSettled(ev)
	}
}

func (c *Controller) cancelOperation() {
	c.epoch++
	c.clearPending()
	c.setStep(StepMenu)
	c.say("Operación cancelada.")
	c.push(Turn{Speaker: SpeakerAssistant, Text: "¿Cómo puedo ayudarle hoy?", Options: menuOptions()})
}

func (c *Controller) resetToMenu() {
	c.epoch++
	c.clearPending()
	c.setStep(StepMenu)
	c.push(Turn{Speaker: SpeakerAssistant, Text: "¿Cómo puedo ayudarle hoy?", Options: menuOptions()})
}

func (c *Controller) clearPending() {
	c.recipient = nil
	c.amount = 0
	c.concept = ""
	c.cep = ""
	c.pending = nil
}

func (c *Controller) pushCollect(amount float64, concept string) {
	p := payments.BuildCollectPayload(payments.CollectRequest{
		Amount:  amount,
		Concept: concept,
		Bank:    c.cfg.BankName,
		Account: c.cfg.Account,
		Name:    c.cfg.AccountHolder,
	})
	c.emit(EventCollectGenerated, map[string]any{"amount": p.Amount, "concept": p.Concept})
	c.push(Turn{Speaker: SpeakerAssistant, Collect: &p})
}

// dispatch routes a normalized interpretation through the menu of flows. The
// acknowledgement is generated before taking the lock since it may hit the
// network.
func (c *Controller) dispatch(ctx context.Context, res nlu.Result, userText string) {
	c.mu.Lock()
	balance := c.balance
	c.mu.Unlock()

	ack := c.replier.Generate(ctx, nlu.ReplyInput{UserText: userText, Result: res, Balance: balance})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.say(ack)

	switch res.Intent {
	case nlu.IntentCheckBalance:
		c.say("Su saldo actual es de " + payments.Currency(c.balance) + ".")

	case nlu.IntentCollect:
		if res.Amount != nil && *res.Amount > 0 {
			concept := ""
			if res.Concept != nil {
				concept = *res.Concept
			}
			c.pushCollect(*res.Amount, concept)
			return
		}
		c.push(Turn{Speaker: SpeakerAssistant, Text: "Genere un QR de cobro con monto y concepto.", Prompt: PromptCollect})

	case nlu.IntentShareQR:
		c.pushCollect(0, "")

	case nlu.IntentSendMoney:
		var ct *Contact
		if res.Recipient != nil {
			ct = c.contacts.Find(*res.Recipient)
		}
		if ct != nil {
			c.recipient = ct
			c.concept = ""
			if res.Concept != nil {
				c.concept = *res.Concept
			}
			c.askAmount(ct, res.Amount)
			return
		}
		c.openTransfer()

	case nlu.IntentAddContact:
		c.openTransfer()
		t := Turn{Speaker: SpeakerAssistant, Text: "Agregue el nuevo contacto.", Prompt: PromptContact}
		if res.Recipient != nil {
			t.Prefill = *res.Recipient
		}
		c.push(t)

	case nlu.IntentHelp:
		c.say(strings.Join([]string{
			"Puedo ayudarle con:",
			"• Enviar dinero: \"envía 200 a Ana por renta\"",
			"• Consultar saldo: \"mi saldo\"",
			"• Cobrar con QR: \"cobrar 300 tacos\"",
		}, "\n"))

	case nlu.IntentLinkDimo:
		if c.dimoLinked {
			c.say("Dimo ya está vinculado a su cuenta.")
			return
		}
		c.push(Turn{
			Speaker: SpeakerAssistant,
			Text:    "¿Desea vincular Dimo® ahora para enviar a los contactos de su teléfono?",
			Options: []Option{{ID: "dimo.link", Label: "Vincular ahora"}, {ID: "dimo.later", Label: "Después"}},
		})

	case nlu.IntentUnknown:
		// The acknowledgement already invites a rephrase.
	}
}
