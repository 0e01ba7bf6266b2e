package taxonomy

import (
	"reflect"
	"slices"
	"testing"
)

func TestCatalogShape(t *testing.T) {
	seen := make(map[string]bool)
	counts := make(map[Category]int)
	for _, f := range Catalog() {
		if seen[f.Name] {
			t.Fatalf("duplicate flag %s", f.Name)
		}
		seen[f.Name] = true
		counts[f.Category]++
		if len(f.Patterns) == 0 {
			t.Fatalf("flag %s has no patterns", f.Name)
		}
	}
	want := map[Category]int{Compliance: 5, Disqualification: 7, Technical: 5, Outcome: 7, QA: 2, Sentiment: 4}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("category counts = %v, want %v", counts, want)
	}
	if _, ok := Lookup(" dnc_request "); !ok {
		t.Fatalf("Lookup should be case-insensitive")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		text string
		want []string
		not  []string
	}{
		{"Please stop calling me.", []string{DNCRequest}, nil},
		{"Do not call this number again", []string{DNCRequest}, nil},
		{"Remove my number from the database", []string{DNCRequest}, nil},
		{"Don’t call me again", []string{DNCRequest}, nil},
		{"I'm on the do not call register", []string{DNCRegistryMention}, nil},
		{"My husband passed away last year", []string{Deceased}, nil},
		{"I've been retired for years", []string{Retired}, nil},
		{"We closed down in March", []string{OutOfBusiness}, nil},
		{"Sorry, wrong number", []string{WrongNumber}, nil},
		{"The number you have dialled is not connected", []string{Disconnected}, nil},
		{"The mailbox is full and cannot accept new messages", []string{VoicemailFull}, nil},
		{"Please leave a message after the tone", []string{VoicemailGeneric}, nil},
		{"I'm not interested, no thanks", []string{HardObjection}, []string{SentimentPositive}},
		{"Shut up", []string{ProfanityAbuse}, []string{OutOfBusiness}},
		{"I'm 5 minutes away", nil, []string{MinorUnderage}},
		{"I'm a bit confused", nil, []string{VulnerableCustomer}},
		{"This call may be recorded for quality and training purposes", []string{RecordingDisclosure}, nil},
		{"Call me back next week, I'm driving right now", []string{SoftObjectionCallback}, nil},
		{"It's too expensive", []string{PriceObjection}, nil},
		{"Sorry, I'm in a meeting right now.", nil, []string{SaleClosed}},
		{"I am in the car, can you call me back later?", []string{SoftObjectionCallback}, []string{SaleClosed}},
		{"We're in Melbourne", nil, []string{SaleClosed}},
		{"We're sold on it", []string{SaleClosed}, nil},
		{"Alright, I'm in!", []string{SaleClosed}, nil},
		{"Count me in", []string{SaleClosed}, nil},
		{"I need to check with my wife", []string{AuthorityObjection}, nil},
		{"", nil, nil},
	}
	for _, tt := range tests {
		got := Detect(tt.text)
		for _, w := range tt.want {
			if !slices.Contains(got, w) {
				t.Errorf("Detect(%q) = %v, missing %s", tt.text, got, w)
			}
		}
		for _, n := range tt.not {
			if slices.Contains(got, n) {
				t.Errorf("Detect(%q) = %v, must not contain %s", tt.text, got, n)
			}
		}
		if tt.want == nil && tt.not == nil && got != nil {
			t.Errorf("Detect(%q) = %v, want none", tt.text, got)
		}
	}
}

func TestClassifyDNCRequest(t *testing.T) {
	res := Classify("Please stop calling me. Remove me from your list.", "")
	want := Verdict{
		IsDNC:         true,
		DNCReason:     ReasonExplicitRequest,
		ContactStatus: StatusActive,
		LeadStatus:    LeadDNC,
		LeadScore:     0,
	}
	if res.Verdict != want {
		t.Fatalf("verdict = %+v, want %+v", res.Verdict, want)
	}
	if !slices.Contains(res.Flags, DNCRequest) {
		t.Fatalf("flags = %v", res.Flags)
	}
}

func TestClassifyHotLead(t *testing.T) {
	res := Classify("That sounds great! Sign me up for Tuesday.", "")
	if res.Verdict.IsDNC || res.Verdict.LeadStatus != LeadHot || res.Verdict.LeadScore != 100 {
		t.Fatalf("verdict = %+v", res.Verdict)
	}
	for _, f := range []string{SaleClosed, AppointmentSet} {
		if !slices.Contains(res.Flags, f) {
			t.Fatalf("flags %v missing %s", res.Flags, f)
		}
	}
}

func TestClassifyBusyIsCallbackNotSale(t *testing.T) {
	res := Classify("I am in the car, can you call me back later?", "")
	want := Verdict{ContactStatus: StatusActive, LeadStatus: LeadWarm, LeadScore: 60, CallbackRequested: true}
	if res.Verdict != want {
		t.Fatalf("verdict = %+v, want %+v (flags %v)", res.Verdict, want, res.Flags)
	}
}

func TestClassifyUsesSummary(t *testing.T) {
	res := Classify("", "The customer said they are on the DNC register.")
	if !res.Verdict.IsDNC {
		t.Fatalf("summary text should be classified, got %+v", res)
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  Verdict
	}{
		{"baseline", nil, Verdict{ContactStatus: StatusActive, LeadStatus: LeadCold, LeadScore: 50}},
		{"deceased", []string{Deceased},
			Verdict{IsDNC: true, DNCReason: ReasonDeceased, ContactStatus: StatusDeceased, LeadStatus: LeadDNC}},
		{"explicit request outranks deceased", []string{DNCRequest, Deceased},
			Verdict{IsDNC: true, DNCReason: ReasonExplicitRequest, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
		{"explicit request suppresses lower causes", []string{DNCRequest, ProfanityAbuse, LegalThreat, Deceased},
			Verdict{IsDNC: true, DNCReason: ReasonExplicitRequest, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
		{"deceased outranks profanity", []string{Deceased, ProfanityAbuse},
			Verdict{IsDNC: true, DNCReason: ReasonDeceased, ContactStatus: StatusDeceased, LeadStatus: LeadDNC}},
		{"profanity outranks legal and vulnerable", []string{ProfanityAbuse, LegalThreat, VulnerableCustomer},
			Verdict{IsDNC: true, DNCReason: ReasonHostile, Hostile: true, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
		{"legal threat outranks vulnerable", []string{LegalThreat, VulnerableCustomer},
			Verdict{IsDNC: true, DNCReason: ReasonLegalThreat, RequiresEscalation: true, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
		{"profanity", []string{ProfanityAbuse},
			Verdict{IsDNC: true, DNCReason: ReasonHostile, Hostile: true, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
		{"legal threat", []string{LegalThreat},
			Verdict{IsDNC: true, DNCReason: ReasonLegalThreat, RequiresEscalation: true, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
		{"vulnerable", []string{VulnerableCustomer},
			Verdict{IsDNC: true, DNCReason: ReasonVulnerable, ContactStatus: StatusVulnerable, LeadStatus: LeadDNC}},
		{"retired", []string{Retired}, Verdict{ContactStatus: StatusRetired, LeadStatus: LeadCold, LeadScore: 10}},
		{"closed", []string{OutOfBusiness}, Verdict{ContactStatus: StatusClosed, LeadStatus: LeadCold, LeadScore: 0}},
		{"invalid", []string{Disconnected}, Verdict{ContactStatus: StatusInvalid, LeadStatus: LeadCold, LeadScore: 0}},
		{"left company", []string{NoLongerAtCompany}, Verdict{ContactStatus: StatusLeftCompany, LeadStatus: LeadCold, LeadScore: 20}},
		{"retired and closed", []string{Retired, OutOfBusiness}, Verdict{ContactStatus: StatusClosed, LeadStatus: LeadCold, LeadScore: 0}},
		{"warm", []string{SentimentPositive}, Verdict{ContactStatus: StatusActive, LeadStatus: LeadWarm, LeadScore: 80}},
		{"lost", []string{HardObjection}, Verdict{ContactStatus: StatusActive, LeadStatus: LeadLost, LeadScore: 20}},
		{"callback", []string{SoftObjectionCallback},
			Verdict{ContactStatus: StatusActive, LeadStatus: LeadWarm, LeadScore: 60, CallbackRequested: true}},
		{"angry and lost clamps", []string{HardObjection, SentimentAngry}, Verdict{ContactStatus: StatusActive, LeadStatus: LeadLost, LeadScore: 0}},
		{"urgent hot clamps", []string{SaleClosed, SentimentUrgent}, Verdict{ContactStatus: StatusActive, LeadStatus: LeadHot, LeadScore: 100}},
		{"voicemail full", []string{VoicemailFull}, Verdict{ContactStatus: StatusActive, LeadStatus: LeadCold, LeadScore: 50, VoicemailFull: true}},
		{"dnc ignores outcomes", []string{DNCRequest, SaleClosed, SentimentUrgent},
			Verdict{IsDNC: true, DNCReason: ReasonExplicitRequest, ContactStatus: StatusActive, LeadStatus: LeadDNC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.flags); got != tt.want {
				t.Fatalf("Derive(%v) = %+v, want %+v", tt.flags, got, tt.want)
			}
		})
	}
}

func TestVerdictInvariants(t *testing.T) {
	var names []string
	for _, f := range Catalog() {
		names = append(names, f.Name)
	}
	// Every single flag and every adjacent pair.
	sets := make([][]string, 0, len(names)*2)
	for i, n := range names {
		sets = append(sets, []string{n})
		if i+1 < len(names) {
			sets = append(sets, []string{n, names[i+1]})
		}
	}
	for _, flags := range sets {
		v := Derive(flags)
		if v.LeadScore < 0 || v.LeadScore > 100 {
			t.Fatalf("%v: score %d out of range", flags, v.LeadScore)
		}
		if v.IsDNC && v.LeadScore != 0 {
			t.Fatalf("%v: DNC with score %d", flags, v.LeadScore)
		}
		if v.ContactStatus == StatusDeceased && !v.IsDNC {
			t.Fatalf("%v: deceased but not DNC", flags)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "This call is being recorded. I'm retired, my husband passed away, call me back tomorrow."
	first := Classify(text, "customer sounded upset")
	for i := 0; i < 20; i++ {
		if got := Classify(text, "customer sounded upset"); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestWorseStatus(t *testing.T) {
	if got := WorseStatus(StatusRetired, StatusDeceased); got != StatusDeceased {
		t.Fatalf("got %s", got)
	}
	if got := WorseStatus(StatusClosed, StatusRetired); got != StatusClosed {
		t.Fatalf("got %s", got)
	}
	if got := WorseStatus("mystery", StatusActive); got != "mystery" {
		t.Fatalf("unknown status should tie with active and keep the first, got %s", got)
	}
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		flags []string
		want  string
	}{
		{nil, "neutral"},
		{[]string{SaleClosed}, "positive"},
		{[]string{SentimentPositive, ProfanityAbuse}, "negative"},
		{[]string{SentimentAngry}, "negative"},
	}
	for _, tt := range tests {
		if got := SentimentLabel(tt.flags); got != tt.want {
			t.Errorf("SentimentLabel(%v) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
