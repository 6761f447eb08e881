package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"focusonmeal/models"
	"focusonmeal/utils"
)

type fakeRecommender struct {
	mu    sync.Mutex
	calls []models.MealPlanRequest
	resp  *models.MealPlanResponse
	err   error
	gate  chan struct{}
}

func (f *fakeRecommender) RecommendMealPlan(_ context.Context, req models.MealPlanRequest) (*models.MealPlanResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.resp, f.err
}

func (f *fakeRecommender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func countSender(msgs []models.ChatMessage, s models.Sender) int {
	n := 0
	for _, m := range msgs {
		if m.Sender == s {
			n++
		}
	}
	return n
}

func TestInitialViewShowsPlaceholder(t *testing.T) {
	t.Parallel()

	w := NewMealChatWidget(&fakeRecommender{})
	v := w.View()
	if !v.Placeholder || v.Loading || v.ChatActive || v.ResultsActive || v.Empty || v.Error != "" {
		t.Fatalf("unexpected initial view: %+v", v)
	}
	if v.GenerateDisabled {
		t.Fatalf("generate should be enabled initially")
	}
}

func TestGenerateRejectsOutOfRangeBiometrics(t *testing.T) {
	t.Parallel()

	cases := []MealPlanInput{
		{Height: 99, Weight: 60},
		{Height: 251, Weight: 60},
		{Height: 170, Weight: 29},
		{Height: 170, Weight: 201},
		{Height: 0, Weight: 0},
		{Height: -5, Weight: 500},
	}
	for _, in := range cases {
		api := &fakeRecommender{}
		clock := newClock()
		w := NewMealChatWidget(api, WithClock(clock.Now))

		v, err := w.Generate(context.Background(), in)
		if !errors.Is(err, utils.ErrBiometricsOutOfRange) {
			t.Fatalf("%+v: expected range error, got %v", in, err)
		}
		if api.callCount() != 0 {
			t.Fatalf("%+v: backend must not be called", in)
		}
		if v.Error == "" {
			t.Fatalf("%+v: expected error banner", in)
		}
		if v.Phase != PhaseIdle || !v.Placeholder || len(v.Transcript) != 0 {
			t.Fatalf("%+v: widget should stay idle, got %+v", in, v)
		}

		clock.Advance(5 * time.Second)
		if got := w.View().Error; got != "" {
			t.Fatalf("%+v: banner should auto-dismiss after 5s, still %q", in, got)
		}
	}
}

func TestValidationBannerIsPushedAndExpires(t *testing.T) {
	t.Parallel()

	w := NewMealChatWidget(&fakeRecommender{}, WithBannerTTL(20*time.Millisecond))
	updates := make(chan View, 4)
	w.OnChange(func(v View) { updates <- v })

	if _, err := w.Generate(context.Background(), MealPlanInput{Height: 50, Weight: 60}); !errors.Is(err, utils.ErrBiometricsOutOfRange) {
		t.Fatalf("expected range error, got %v", err)
	}

	next := func() View {
		t.Helper()
		select {
		case v := <-updates:
			return v
		case <-time.After(2 * time.Second):
			t.Fatalf("no update pushed")
			return View{}
		}
	}
	if v := next(); v.Error != validationMessage {
		t.Fatalf("first push should carry the banner, got %+v", v)
	}
	if v := next(); v.Error != "" {
		t.Fatalf("second push should clear the banner, got %q", v.Error)
	}
}

func TestGenerateSuccessAppendsOneMessageAndOneCard(t *testing.T) {
	t.Parallel()

	api := &fakeRecommender{resp: &models.MealPlanResponse{Status: "SUCCESS", MealPlan: "example plan"}}
	w := NewMealChatWidget(api, WithClock(newClock().Now))

	v, err := w.Generate(context.Background(), MealPlanInput{Height: 170, Weight: 65, Allergies: []string{"peanut, milk", "peanut"}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if got := countSender(v.Transcript, models.SenderAI); got != 1 {
		t.Fatalf("expected exactly one ai message, got %d", got)
	}
	if got := countSender(v.Transcript, models.SenderUser); got != 1 {
		t.Fatalf("expected one synthetic user message, got %d", got)
	}
	if len(v.Results) != 1 || !strings.Contains(v.Results[0].Plan, "example plan") {
		t.Fatalf("expected one card with the plan, got %+v", v.Results)
	}
	if v.Results[0].CreatedAt.IsZero() || v.Results[0].BMICategory == "" {
		t.Fatalf("card should be timestamped and carry bmi: %+v", v.Results[0])
	}
	if v.Loading || v.Empty || !v.ResultsActive || !v.ChatActive || v.Error != "" || v.GenerateDisabled {
		t.Fatalf("unexpected regions after success: %+v", v)
	}

	if len(api.calls) != 1 {
		t.Fatalf("expected one backend call, got %d", len(api.calls))
	}
	req := api.calls[0]
	if req.ServingSize != 1 || req.Height != 170 || req.Weight != 65 || req.Message == "" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if strings.Join(req.Allergies, "|") != "peanut|milk" {
		t.Fatalf("expected de-duplicated allergies, got %v", req.Allergies)
	}
}

func TestGenerateFailureShowsEmptyStateAndBanner(t *testing.T) {
	t.Parallel()

	cases := map[string]*fakeRecommender{
		"network":     {err: errors.New("connection refused")},
		"status":      {resp: &models.MealPlanResponse{Status: "FAIL"}},
		"http status": {err: &APIError{StatusCode: 500}},
	}
	for name, api := range cases {
		w := NewMealChatWidget(api)
		v, err := w.Generate(context.Background(), MealPlanInput{Height: 170, Weight: 65})
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if v.Error != generateFailedBanner {
			t.Fatalf("%s: expected generic banner, got %q", name, v.Error)
		}
		if got := countSender(v.Transcript, models.SenderAI); got != 1 {
			t.Fatalf("%s: expected one ai failure message, got %d", name, got)
		}
		if v.Transcript[len(v.Transcript)-1].Text != planFailedMessage {
			t.Fatalf("%s: last message should be the failure reply", name)
		}
		if !v.Empty || v.Loading || v.ResultsActive || len(v.Results) != 0 || v.GenerateDisabled {
			t.Fatalf("%s: unexpected regions: %+v", name, v)
		}

		if w.DismissBanner().Error != "" {
			t.Fatalf("%s: banner should be dismissible", name)
		}
	}
}

func TestGenerateFailureSurfacesServerMessage(t *testing.T) {
	t.Parallel()

	api := &fakeRecommender{resp: &models.MealPlanResponse{Status: "ERROR", Message: "recommendation service busy"}}
	w := NewMealChatWidget(api)
	v, _ := w.Generate(context.Background(), MealPlanInput{Height: 180, Weight: 80})
	if v.Error != "recommendation service busy" {
		t.Fatalf("expected server message in banner, got %q", v.Error)
	}
}

func TestGenerateWhileRequestingIsRejected(t *testing.T) {
	t.Parallel()

	api := &fakeRecommender{
		resp: &models.MealPlanResponse{Status: "SUCCESS", MealPlan: "plan"},
		gate: make(chan struct{}),
	}
	w := NewMealChatWidget(api)

	requesting := make(chan View, 4)
	w.OnChange(func(v View) { requesting <- v })

	done := make(chan error, 1)
	go func() {
		_, err := w.Generate(context.Background(), MealPlanInput{Height: 170, Weight: 65})
		done <- err
	}()

	v := <-requesting
	if !v.Loading || !v.GenerateDisabled || v.Phase != PhaseRequesting {
		t.Fatalf("expected loading view, got %+v", v)
	}

	if _, err := w.Generate(context.Background(), MealPlanInput{Height: 170, Weight: 65}); !errors.Is(err, ErrGenerateInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}

	close(api.gate)
	if err := <-done; err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if api.callCount() != 1 {
		t.Fatalf("expected a single backend call, got %d", api.callCount())
	}
}

func TestServingSizeStaysWithinBounds(t *testing.T) {
	t.Parallel()

	w := NewMealChatWidget(&fakeRecommender{})
	if _, err := w.IncrementServings(); !errors.Is(err, ErrModalClosed) {
		t.Fatalf("expected closed dialog error, got %v", err)
	}

	v := w.OpenServingModal()
	if !v.ModalOpen || v.Servings != 1 || v.CanDecrement || !v.CanIncrement {
		t.Fatalf("unexpected freshly opened dialog: %+v", v)
	}
	for i := 0; i < 25; i++ {
		v, _ = w.IncrementServings()
		if v.Servings < MinServings || v.Servings > MaxServings {
			t.Fatalf("servings out of bounds: %d", v.Servings)
		}
	}
	if v.Servings != 10 || v.CanIncrement {
		t.Fatalf("expected to stop at 10, got %+v", v)
	}
	for i := 0; i < 25; i++ {
		v, _ = w.DecrementServings()
		if v.Servings < MinServings || v.Servings > MaxServings {
			t.Fatalf("servings out of bounds: %d", v.Servings)
		}
	}
	if v.Servings != 1 {
		t.Fatalf("expected to stop at 1, got %d", v.Servings)
	}

	w.IncrementServings()
	w.IncrementServings()
	v, err := w.ConfirmSave()
	if err != nil {
		t.Fatalf("confirm save: %v", err)
	}
	if v.ModalOpen || !strings.Contains(v.SaveConfirmation, "3") {
		t.Fatalf("expected closed dialog with confirmation for 3 servings, got %+v", v)
	}

	v = w.OpenServingModal()
	if v.Servings != 1 || v.SaveConfirmation != "" {
		t.Fatalf("reopened dialog should start over: %+v", v)
	}
}

func TestSendChatRepliesAfterDelay(t *testing.T) {
	t.Parallel()

	w := NewMealChatWidget(&fakeRecommender{}, WithReplyDelay(10*time.Millisecond))
	updates := make(chan View, 1)
	w.OnChange(func(v View) { updates <- v })

	v, err := w.SendChat("  what about dinner?  ")
	if err != nil {
		t.Fatalf("send chat: %v", err)
	}
	if len(v.Transcript) != 1 || v.Transcript[0].Sender != models.SenderUser || v.Transcript[0].Text != "what about dinner?" {
		t.Fatalf("user message should be appended at once: %+v", v.Transcript)
	}
	if !v.ChatActive || v.Placeholder {
		t.Fatalf("chat region should be active: %+v", v)
	}

	select {
	case v = <-updates:
	case <-time.After(2 * time.Second):
		t.Fatalf("no placeholder reply")
	}
	if len(v.Transcript) != 2 || v.Transcript[1].Sender != models.SenderAI || v.Transcript[1].Text != chatPlaceholderReply {
		t.Fatalf("unexpected transcript after reply: %+v", v.Transcript)
	}

	if _, err := w.SendChat("   "); !errors.Is(err, ErrEmptyChatMessage) {
		t.Fatalf("expected empty message error, got %v", err)
	}
}

func TestRenderIsPure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	st := MealChatState{
		Phase:  PhaseIdle,
		Banner: &Banner{Message: "bad input", ExpiresAt: now.Add(time.Second)},
		Modal:  ServingModal{Count: 1},
	}
	if got := Render(st, now).Error; got != "bad input" {
		t.Fatalf("banner should show before expiry, got %q", got)
	}
	if got := Render(st, now.Add(time.Second)).Error; got != "" {
		t.Fatalf("banner should hide at expiry, got %q", got)
	}
	if st.Banner == nil {
		t.Fatalf("render must not mutate state")
	}
}

func TestWidgetRegistryIsPerSession(t *testing.T) {
	t.Parallel()

	reg := NewWidgetRegistry(func() *MealChatWidget { return NewMealChatWidget(&fakeRecommender{}) })
	a, created := reg.Get("a")
	if !created {
		t.Fatalf("first get should create")
	}
	again, created := reg.Get("a")
	if created || again != a {
		t.Fatalf("second get should reuse the widget")
	}
	b, _ := reg.Get("b")
	if b == a {
		t.Fatalf("sessions must not share widgets")
	}
	reg.Drop("a")
	if _, created := reg.Get("a"); !created {
		t.Fatalf("dropped widget should be rebuilt")
	}
}

func TestWidgetRegistrySweepDropsIdleWidgets(t *testing.T) {
	t.Parallel()

	reg := NewWidgetRegistry(func() *MealChatWidget { return NewMealChatWidget(&fakeRecommender{}) })
	reg.Get("a")
	reg.Get("b")

	if n := reg.Sweep(time.Now().Add(-time.Hour)); n != 0 || reg.Len() != 2 {
		t.Fatalf("recent widgets must survive, swept %d, %d left", n, reg.Len())
	}
	if n := reg.Sweep(time.Now().Add(time.Second)); n != 2 || reg.Len() != 0 {
		t.Fatalf("idle widgets should be dropped, swept %d, %d left", n, reg.Len())
	}
}
