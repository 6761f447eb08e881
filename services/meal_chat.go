package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"focusonmeal/models"
	"focusonmeal/utils"
)

const (
	MinServings = 1
	MaxServings = 10

	validationBannerTTL = 5 * time.Second
	defaultReplyDelay   = time.Second

	mealPlanPrompt       = "Please recommend a meal plan based on my body information."
	validationMessage    = "Please enter a height between 100 and 250 cm and a weight between 30 and 200 kg."
	planReadyMessage     = "Your meal plan is ready. Check the results panel."
	planFailedMessage    = "Sorry, I couldn't create a meal plan. Please try again."
	generateFailedBanner = "Failed to generate a meal plan. Please try again."
	chatPlaceholderReply = "Thanks for your message! Follow-up answers from the assistant are coming soon."
)

var (
	ErrGenerateInFlight = errors.New("meal plan generation already in progress")
	ErrEmptyChatMessage = errors.New("chat message is empty")
	ErrModalClosed      = errors.New("serving size dialog is not open")
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRequesting Phase = "requesting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

type MealPlanInput struct {
	Height    int      `form:"height" json:"height"`
	Weight    int      `form:"weight" json:"weight"`
	Allergies []string `form:"allergies" json:"allergies"`
}

// Banner is the dismissible error strip. A zero ExpiresAt never expires.
type Banner struct {
	Message   string
	ExpiresAt time.Time
}

type ServingModal struct {
	Open         bool
	Count        int
	Confirmation string
}

// MealChatState is the whole widget state; View is derived from it by Render.
type MealChatState struct {
	Phase      Phase
	Transcript []models.ChatMessage
	Results    []models.ResultCard
	Banner     *Banner
	Modal      ServingModal
}

type View struct {
	Phase            Phase                `json:"phase"`
	Placeholder      bool                 `json:"placeholder"`
	Loading          bool                 `json:"loading"`
	ChatActive       bool                 `json:"chat_active"`
	ResultsActive    bool                 `json:"results_active"`
	Empty            bool                 `json:"empty"`
	Error            string               `json:"error,omitempty"`
	GenerateDisabled bool                 `json:"generate_disabled"`
	Transcript       []models.ChatMessage `json:"transcript"`
	Results          []models.ResultCard  `json:"results"`
	ModalOpen        bool                 `json:"modal_open"`
	Servings         int                  `json:"servings"`
	CanIncrement     bool                 `json:"can_increment"`
	CanDecrement     bool                 `json:"can_decrement"`
	SaveConfirmation string               `json:"save_confirmation,omitempty"`
}

// Render is a pure mapping from state to what the page shows at time now.
func Render(st MealChatState, now time.Time) View {
	v := View{
		Phase:            st.Phase,
		Placeholder:      st.Phase == PhaseIdle && len(st.Transcript) == 0,
		Loading:          st.Phase == PhaseRequesting,
		ChatActive:       len(st.Transcript) > 0,
		ResultsActive:    st.Phase == PhaseSucceeded && len(st.Results) > 0,
		Empty:            st.Phase == PhaseFailed,
		GenerateDisabled: st.Phase == PhaseRequesting,
		Transcript:       append([]models.ChatMessage{}, st.Transcript...),
		Results:          append([]models.ResultCard{}, st.Results...),
		ModalOpen:        st.Modal.Open,
		Servings:         st.Modal.Count,
		SaveConfirmation: st.Modal.Confirmation,
	}
	if st.Banner != nil && (st.Banner.ExpiresAt.IsZero() || now.Before(st.Banner.ExpiresAt)) {
		v.Error = st.Banner.Message
	}
	if st.Modal.Open {
		v.CanIncrement = st.Modal.Count < MaxServings
		v.CanDecrement = st.Modal.Count > MinServings
	}
	return v
}

type MealRecommender interface {
	RecommendMealPlan(ctx context.Context, req models.MealPlanRequest) (*models.MealPlanResponse, error)
}

// MealChatWidget is one visitor's meal-plan chat. Safe for concurrent use.
type MealChatWidget struct {
	api        MealRecommender
	now        func() time.Time
	replyDelay time.Duration
	bannerTTL  time.Duration

	mu       sync.Mutex
	state    MealChatState
	onChange func(View)
}

type WidgetOption func(*MealChatWidget)

func WithClock(now func() time.Time) WidgetOption {
	return func(w *MealChatWidget) { w.now = now }
}

func WithReplyDelay(d time.Duration) WidgetOption {
	return func(w *MealChatWidget) { w.replyDelay = d }
}

// WithBannerTTL sets how long a validation banner stays up.
func WithBannerTTL(d time.Duration) WidgetOption {
	return func(w *MealChatWidget) { w.bannerTTL = d }
}

func NewMealChatWidget(api MealRecommender, opts ...WidgetOption) *MealChatWidget {
	w := &MealChatWidget{
		api:        api,
		now:        time.Now,
		replyDelay: defaultReplyDelay,
		bannerTTL:  validationBannerTTL,
		state:      MealChatState{Phase: PhaseIdle, Modal: ServingModal{Count: MinServings}},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnChange registers a listener called with the new view after asynchronous updates.
func (w *MealChatWidget) OnChange(fn func(View)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

func (w *MealChatWidget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Render(w.state, w.now())
}

// Generate validates the biometrics and requests a plan. It blocks until the backend
// answers; the returned view reflects the final state.
func (w *MealChatWidget) Generate(ctx context.Context, in MealPlanInput) (View, error) {
	w.mu.Lock()
	if err := utils.ValidateBiometrics(in.Height, in.Weight); err != nil {
		w.state.Banner = &Banner{Message: validationMessage, ExpiresAt: w.now().Add(w.bannerTTL)}
		v := Render(w.state, w.now())
		w.mu.Unlock()
		w.notify()
		time.AfterFunc(w.bannerTTL, w.notify)
		return v, err
	}
	if w.state.Phase == PhaseRequesting {
		v := Render(w.state, w.now())
		w.mu.Unlock()
		return v, ErrGenerateInFlight
	}

	allergies := normalizeAllergies(in.Allergies)
	w.state.Phase = PhaseRequesting
	w.state.Banner = nil
	w.appendLocked(models.SenderUser, describeRequest(in.Height, in.Weight, allergies))
	w.mu.Unlock()
	w.notify()

	req := models.MealPlanRequest{
		Height:      in.Height,
		Weight:      in.Weight,
		ServingSize: 1,
		Allergies:   allergies,
		Message:     mealPlanPrompt,
	}
	// navigating away must not abort a running request
	resp, err := w.api.RecommendMealPlan(context.WithoutCancel(ctx), req)
	if err == nil && resp.Status != models.StatusSuccess {
		err = &APIError{StatusCode: 200, Message: strings.TrimSpace(resp.Message)}
	}

	w.mu.Lock()
	if err != nil {
		log.Printf("meal plan: request failed: %v", err)
		msg := ServerMessage(err)
		if msg == "" {
			msg = generateFailedBanner
		}
		w.state.Phase = PhaseFailed
		w.appendLocked(models.SenderAI, planFailedMessage)
		w.state.Banner = &Banner{Message: msg}
	} else {
		w.state.Phase = PhaseSucceeded
		w.appendLocked(models.SenderAI, planReadyMessage)
		w.state.Results = append(w.state.Results, newResultCard(resp.MealPlan, in, w.now()))
	}
	v := Render(w.state, w.now())
	w.mu.Unlock()
	w.notify()

	if err != nil {
		return v, fmt.Errorf("generate meal plan: %w", err)
	}
	return v, nil
}

// SendChat appends the user's message now and a placeholder reply after the reply delay.
func (w *MealChatWidget) SendChat(text string) (View, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return w.View(), ErrEmptyChatMessage
	}

	w.mu.Lock()
	w.appendLocked(models.SenderUser, text)
	v := Render(w.state, w.now())
	w.mu.Unlock()

	time.AfterFunc(w.replyDelay, func() {
		w.mu.Lock()
		w.appendLocked(models.SenderAI, chatPlaceholderReply)
		w.mu.Unlock()
		w.notify()
	})
	return v, nil
}

func (w *MealChatWidget) DismissBanner() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Banner = nil
	return Render(w.state, w.now())
}

func (w *MealChatWidget) OpenServingModal() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Modal = ServingModal{Open: true, Count: MinServings}
	return Render(w.state, w.now())
}

func (w *MealChatWidget) CloseServingModal() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Modal = ServingModal{Count: MinServings}
	return Render(w.state, w.now())
}

func (w *MealChatWidget) IncrementServings() (View, error) {
	return w.adjustServings(1)
}

func (w *MealChatWidget) DecrementServings() (View, error) {
	return w.adjustServings(-1)
}

func (w *MealChatWidget) adjustServings(delta int) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.Modal.Open {
		return Render(w.state, w.now()), ErrModalClosed
	}
	n := w.state.Modal.Count + delta
	if n >= MinServings && n <= MaxServings {
		w.state.Modal.Count = n
	}
	return Render(w.state, w.now()), nil
}

// ConfirmSave closes the dialog with a confirmation. Nothing is persisted.
func (w *MealChatWidget) ConfirmSave() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.Modal.Open {
		return Render(w.state, w.now()), ErrModalClosed
	}
	count := w.state.Modal.Count
	w.state.Modal = ServingModal{
		Count:        MinServings,
		Confirmation: fmt.Sprintf("Meal plan saved for %d serving(s).", count),
	}
	return Render(w.state, w.now()), nil
}

func (w *MealChatWidget) appendLocked(sender models.Sender, text string) {
	w.state.Transcript = append(w.state.Transcript, models.ChatMessage{
		Text:   text,
		Sender: sender,
		SentAt: w.now(),
	})
}

func (w *MealChatWidget) notify() {
	w.mu.Lock()
	fn := w.onChange
	v := Render(w.state, w.now())
	w.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}

func normalizeAllergies(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func describeRequest(height, weight int, allergies []string) string {
	list := "none"
	if len(allergies) > 0 {
		list = strings.Join(allergies, ", ")
	}
	return fmt.Sprintf("Height %dcm, weight %dkg, allergies: %s. Please recommend a meal plan.", height, weight, list)
}

func newResultCard(plan string, in MealPlanInput, at time.Time) models.ResultCard {
	card := models.ResultCard{Plan: plan, CreatedAt: at}
	if bmi, err := utils.CalculateBMI(float64(in.Height), float64(in.Weight)); err == nil {
		card.BMI = bmi
		card.BMICategory = utils.BMICategory(bmi)
	}
	return card
}

// WidgetRegistry hands out one widget per session.
type WidgetRegistry struct {
	mu       sync.Mutex
	widgets  map[string]*MealChatWidget
	lastUsed map[string]time.Time
	newFn    func() *MealChatWidget
}

func NewWidgetRegistry(newFn func() *MealChatWidget) *WidgetRegistry {
	return &WidgetRegistry{
		widgets:  make(map[string]*MealChatWidget),
		lastUsed: make(map[string]time.Time),
		newFn:    newFn,
	}
}

// Get returns the session's widget and whether it was just created.
func (r *WidgetRegistry) Get(sessionID string) (*MealChatWidget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsed[sessionID] = time.Now()
	if w, ok := r.widgets[sessionID]; ok {
		return w, false
	}
	w := r.newFn()
	r.widgets[sessionID] = w
	return w, true
}

func (r *WidgetRegistry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.widgets, sessionID)
	delete(r.lastUsed, sessionID)
	r.mu.Unlock()
}

// Sweep drops widgets not used since before and returns how many went.
func (r *WidgetRegistry) Sweep(before time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, at := range r.lastUsed {
		if at.Before(before) {
			delete(r.widgets, id)
			delete(r.lastUsed, id)
			n++
		}
	}
	return n
}

func (r *WidgetRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}
