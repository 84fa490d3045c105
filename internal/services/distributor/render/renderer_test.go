package render

import (
	"testing"
	"time"

	"github.com/drillwire/drillwire/internal/drills"
	"github.com/drillwire/drillwire/internal/services/dialog/domain"
	"github.com/drillwire/drillwire/internal/services/dialog/event"
)

const testPhone = "+15551230000"

func mustEvent(t *testing.T, typ event.Type, profile domain.UserProfile, payload any) event.Event {
	t.Helper()
	ev, err := event.New("ev-1", testPhone, time.Now(), typ, profile, payload)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return ev
}

func TestRenderDrillStartedSendsFirstPromptMessages(t *testing.T) {
	prompt := drills.Prompt{
		Slug: "intro",
		Messages: []drills.PromptMessage{
			{Text: "Welcome, {{name}}!"},
			{Text: "First question?", MediaURL: "https://cdn.example/q.gif"},
		},
	}
	ev := mustEvent(t, event.TypeDrillStarted, domain.UserProfile{Name: "Ana"},
		event.DrillStartedPayload{DrillInstanceID: "i1", FirstPrompt: prompt})

	messages, err := Render(ev)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	if messages[0].Body != "Welcome, Ana!" || messages[0].To != testPhone {
		t.Errorf("first message = %+v", messages[0])
	}
	if messages[1].MediaURL != "https://cdn.example/q.gif" {
		t.Errorf("second message = %+v", messages[1])
	}
}

func TestRenderAddressesByFirstNameAndCompany(t *testing.T) {
	prompt := drills.Prompt{
		Slug:     "intro",
		Messages: []drills.PromptMessage{{Text: "Hi {{name}}, welcome to {{company}}'s program."}},
	}

	named := mustEvent(t, event.TypePromptAdvanced,
		domain.UserProfile{Name: "Ana García", AccountInfo: domain.AccountInfo{"company": "Acme Corp"}},
		event.PromptAdvancedPayload{DrillInstanceID: "i1", Prompt: prompt})
	messages, err := Render(named)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "Hi Ana, welcome to Acme Corp's program." {
		t.Fatalf("messages = %v", messages)
	}

	// Without account info the company label has a neutral fallback.
	anonymous := mustEvent(t, event.TypePromptAdvanced,
		domain.UserProfile{Name: "Ana"},
		event.PromptAdvancedPayload{DrillInstanceID: "i1", Prompt: prompt})
	messages, err = Render(anonymous)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "Hi Ana, welcome to your company's program." {
		t.Fatalf("messages = %v", messages)
	}
}

func TestRenderPromptFailed(t *testing.T) {
	graded := drills.Prompt{Slug: "q", CorrectResponse: "6 feet"}

	retry := mustEvent(t, event.TypePromptFailed, domain.UserProfile{},
		event.PromptFailedPayload{Prompt: graded, Abandoned: false})
	messages, err := Render(retry)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "That's not quite right. Try again!" {
		t.Fatalf("retry messages = %v", messages)
	}

	abandoned := mustEvent(t, event.TypePromptFailed, domain.UserProfile{},
		event.PromptFailedPayload{Prompt: graded, Abandoned: true})
	messages, err = Render(abandoned)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "The correct answer is 6 feet. Let's move on." {
		t.Fatalf("abandoned messages = %v", messages)
	}

	// An abandoned open prompt has no answer to teach.
	open := mustEvent(t, event.TypePromptFailed, domain.UserProfile{},
		event.PromptFailedPayload{Prompt: drills.Prompt{Slug: "open"}, Abandoned: true})
	if messages, err := Render(open); err != nil || len(messages) != 0 {
		t.Errorf("open prompt messages = %v (err=%v)", messages, err)
	}
}

func TestRenderPromptCompleted(t *testing.T) {
	graded := mustEvent(t, event.TypePromptCompleted, domain.UserProfile{},
		event.PromptCompletedPayload{Prompt: drills.Prompt{Slug: "q", CorrectResponse: "6 feet"}})
	messages, err := Render(graded)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "Correct!" {
		t.Fatalf("messages = %v", messages)
	}

	// Open prompts (name capture and the like) get no grade copy.
	open := mustEvent(t, event.TypePromptCompleted, domain.UserProfile{},
		event.PromptCompletedPayload{Prompt: drills.Prompt{Slug: "name"}})
	if messages, err := Render(open); err != nil || len(messages) != 0 {
		t.Errorf("open prompt messages = %v (err=%v)", messages, err)
	}
}

func TestRenderLocalizesBySpanishProfile(t *testing.T) {
	ev := mustEvent(t, event.TypeUserValidationFailed, domain.UserProfile{Language: "es"},
		event.UserValidationFailedPayload{})
	messages, err := Render(ev)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(messages) != 1 || messages[0].Body != "No reconocimos ese código. Revísalo y envíalo de nuevo." {
		t.Fatalf("messages = %v", messages)
	}
}

func TestRenderSilentEvents(t *testing.T) {
	silent := []event.Type{
		event.TypeUserValidated,
		event.TypeDrillCompleted,
		event.TypeUserOptedOut,
		event.TypeNextDrillRequested,
		event.TypeReminderTriggered,
	}
	for _, typ := range silent {
		ev := mustEvent(t, typ, domain.UserProfile{}, struct{}{})
		if messages, err := Render(ev); err != nil || len(messages) != 0 {
			t.Errorf("%s messages = %v (err=%v)", typ, messages, err)
		}
	}
}
