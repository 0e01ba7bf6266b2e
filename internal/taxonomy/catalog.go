package taxonomy

import (
	"regexp"
	"strings"
)

// Version identifies the catalog below. Bump it whenever a pattern changes.
const Version = "2024.06.2"

// Category groups related flags.
type Category string

const (
	Compliance       Category = "compliance"
	Disqualification Category = "disqualification"
	Technical        Category = "technical"
	Outcome          Category = "outcome"
	QA               Category = "qa"
	Sentiment        Category = "sentiment"
)

// Flag names.
const (
	DNCRequest         = "DNC_REQUEST"
	DNCRegistryMention = "DNC_REGISTRY_MENTION"
	LegalThreat        = "LEGAL_THREAT"
	VulnerableCustomer = "VULNERABLE_CUSTOMER"
	ProfanityAbuse     = "PROFANITY_ABUSE"

	Retired           = "RETIRED"
	Deceased          = "DECEASED"
	OutOfBusiness     = "OUT_OF_BUSINESS"
	WrongNumber       = "WRONG_NUMBER"
	MinorUnderage     = "MINOR_UNDERAGE"
	Competitor        = "COMPETITOR"
	NoLongerAtCompany = "NO_LONGER_AT_COMPANY"

	VoicemailGeneric = "VOICEMAIL_GENERIC"
	VoicemailFull    = "VOICEMAIL_FULL"
	Disconnected     = "DISCONNECTED"
	Gatekeeper       = "GATEKEEPER"
	LanguageBarrier  = "LANGUAGE_BARRIER"

	SaleClosed            = "SALE_CLOSED"
	AppointmentSet        = "APPOINTMENT_SET"
	HardObjection         = "HARD_OBJECTION"
	SoftObjectionCallback = "SOFT_OBJECTION_CALLBACK"
	PriceObjection        = "PRICE_OBJECTION"
	AuthorityObjection    = "AUTHORITY_OBJECTION"
	Referral              = "REFERRAL"

	RecordingDisclosure = "RECORDING_DISCLOSURE"
	VerificationKYC     = "VERIFICATION_KYC"

	SentimentAngry    = "SENTIMENT_ANGRY"
	SentimentPositive = "SENTIMENT_POSITIVE"
	SentimentConfused = "SENTIMENT_CONFUSED"
	SentimentUrgent   = "SENTIMENT_URGENT"
)

// Flag is one named detector. It fires on the first matching pattern.
type Flag struct {
	Name     string
	Category Category
	Priority int
	Patterns []*regexp.Regexp
}

func flag(name string, category Category, priority int, patterns ...string) Flag {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return Flag{Name: name, Category: category, Priority: priority, Patterns: compiled}
}

const weekday = `(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|next\s+week)`

var catalog = []Flag{
	flag(DNCRequest, Compliance, 1,
		`\b(stop|quit)\s+calling\s+(me|us)\b`,
		`\bdo\s+not\s+call\s+(me|us|this\s+number)\s+again\b`,
		`\bremove\s+(me|my\s+number)\s+(off|from)\s+(your|the)\s+(list|database)\b`,
		`\b(stop|quit)\s+(ringing|phoning|contacting)\s+(me|us)\b`,
		`\bdo\s*n[o']?t\s+call\s+(me|us|this\s+number|here)(\s+again)?\b`,
		`\bremove\s+(me|my\s+number|us|this\s+number)\s+(off|from)\s+(your|the)\s+(call(ing)?\s+)?(list|database|system)\b`,
		`\btake\s+(me|my\s+number|us)\s+off\s+(your|the)\s+(call(ing)?\s+)?(list|database|system)\b`,
		`\b(never|don't)\s+(ever\s+)?(call|contact|ring)\s+(me|us)\s+again\b`,
		`\bput\s+(me|my\s+number)\s+on\s+(your|the)\s+do\s+not\s+call\b`,
		`\bunsubscribe\s+me\b`,
	),
	flag(DNCRegistryMention, Compliance, 1,
		`\bdo[\s-]+not[\s-]+call\s+(register|registry|list)\b`,
		`\bdnc\s+(register|registry|list)\b`,
		`\b(i'm|i\s+am|we're|we\s+are|number\s+is)\s+(on|registered\s+(on|with))\s+the\s+(do\s+not\s+call|dnc)\b`,
	),
	flag(LegalThreat, Compliance, 1,
		`\b(my|our|a)\s+(lawyer|solicitor|attorney)\b`,
		`\b(sue|suing)\s+(you|your\s+company)\b`,
		`\b(legal\s+action|take\s+(you|this)\s+to\s+court)\b`,
		`\breport(ing)?\s+(you|this)\s+to\s+(the\s+)?(acma|ombudsman|accc|police|authorities)\b`,
		`\b(harass(ment|ing)?)\b`,
	),
	flag(VulnerableCustomer, Compliance, 1,
		`\b(dementia|alzheimer'?s)\b`,
		`\b(i'm|i\s+am|she's|he's)\s+(very\s+)?(not\s+well|unwell|in\s+hospital|terminally\s+ill)\b`,
		`\b(carer|caregiver|guardian|power\s+of\s+attorney)\b`,
		`\bhard\s+of\s+hearing\b`,
		`\bfinancial\s+hardship\b`,
	),
	flag(ProfanityAbuse, Compliance, 1,
		`\bf+u+c+k+(ing|ed|er|off)?\b`,
		`\b(piss\s+off|bugger\s+off|get\s+stuffed)\b`,
		`\b(bastard|bitch|asshole|arsehole|dickhead|wanker|cunt)s?\b`,
		`\bshut\s+(the\s+(hell|fuck)\s+)?up\b`,
	),

	flag(Deceased, Disqualification, 1,
		`\b(passed\s+away|has\s+passed|died|deceased|no\s+longer\s+(with\s+us|alive))\b`,
		`\b(he|she|they)\s+(is|are|was)\s+dead\b`,
		`\b(funeral|estate\s+of\s+the\s+late)\b`,
	),
	flag(Retired, Disqualification, 2,
		`\b(i'm|i\s+am|i've|i\s+have|he's|she's|we're|we\s+are)\s+(now\s+|been\s+|fully\s+)?retired\b`,
		`\b(i|he|she|we)\s+retired\s+(last|this|a|in)\b`,
		`\bin\s+retirement\b`,
	),
	flag(OutOfBusiness, Disqualification, 1,
		`\b(closed|shut)\s+down\b`,
		`\bclosed\s+(the\s+)?(business|shop|doors)\b`,
		`\b(went|gone|going)\s+(into\s+)?(bust|liquidation|administration|receivership)\b`,
		`\b(no\s+longer|not)\s+(trading|operating|in\s+business)\b`,
		`\bsold\s+the\s+(business|company)\b`,
	),
	flag(WrongNumber, Disqualification, 1,
		`\bwrong\s+(number|person)\b`,
		`\bno\s+one\s+(here\s+)?(by|called|named)\s+that\b`,
		`\b(there's|there\s+is)\s+no\s+\w+\s+here\b`,
		`\bnever\s+heard\s+of\s+(them|him|her|that\s+(person|company))\b`,
	),
	flag(MinorUnderage, Disqualification, 1,
		`\b(i'm|i\s+am)\s+only\s+(1[0-7]|[5-9]|twelve|thirteen|fourteen|fifteen|sixteen|seventeen)\b`,
		`\b(i'm|i\s+am)\s+(1[0-7]|[5-9]|twelve|thirteen|fourteen|fifteen|sixteen|seventeen)\s+years\s+old\b`,
		`\b(my\s+(mum|mom|dad|parents?)\s+(is|are)\s+not\s+(home|here))\b`,
		`\bi'm\s+(just\s+)?a\s+(kid|child|student\s+at\s+school)\b`,
	),
	flag(Competitor, Disqualification, 2,
		`\b(already|just)\s+(signed|switched|locked\s+in)\s+(up\s+)?with\s+(another|a\s+different|someone\s+else)\b`,
		`\b(happy|locked\s+in|under\s+contract)\s+with\s+(our|my|another|a\s+different)\s+(provider|supplier|company)\b`,
	),
	flag(NoLongerAtCompany, Disqualification, 2,
		`\b(doesn't|does\s+not|no\s+longer)\s+work(s)?\s+(here|there|for\s+us)\b`,
		`\b(left|has\s+left)\s+the\s+(company|business|firm)\b`,
		`\bnot\s+with\s+(us|the\s+company)\s+any\s*more\b`,
	),

	flag(VoicemailFull, Technical, 3,
		`\b(mail\s*box|voice\s*mail(box)?)\s+(is\s+)?full\b`,
		`\bcannot\s+(accept|take)\s+(any\s+)?(new\s+|more\s+)?messages\b`,
	),
	flag(VoicemailGeneric, Technical, 3,
		`\bleave\s+(a|your)\s+(message|name\s+and\s+number)\b`,
		`\bafter\s+the\s+(tone|beep)\b`,
		`\b(is\s+)?(not\s+available|unavailable)\s+(to\s+take\s+your\s+call|right\s+now)\b`,
		`\byou('ve|\s+have)\s+reached\s+the\s+voice\s*mail\b`,
	),
	flag(Disconnected, Technical, 3,
		`\b(number|service)\s+(you\s+have\s+(called|dialled|dialed)\s+)?(is\s+)?(disconnected|not\s+connected|no\s+longer\s+in\s+service)\b`,
		`\bnumber\s+is\s+not\s+in\s+service\b`,
		`\bcall\s+cannot\s+be\s+completed\b`,
	),
	flag(Gatekeeper, Technical, 3,
		`\b(he's|she's|they're)\s+(in\s+a\s+meeting|not\s+in|out\s+of\s+the\s+office|busy)\b`,
		`\bcan\s+i\s+(ask|say)\s+who('s|\s+is)\s+calling\b`,
		`\bwhat\s+is\s+(this|it)\s+regarding\b`,
		`\b(i'll|i\s+will)\s+pass\s+(on\s+)?(the|your)\s+message\b`,
	),
	flag(LanguageBarrier, Technical, 3,
		`\b(no|not)\s+(speak|understand)\s+english\b`,
		`\b(english\s+)?(not\s+good|no\s+good)\s+english\b`,
		`\b(speak|talk)\s+(mandarin|cantonese|vietnamese|arabic|hindi|spanish|italian|greek)\b`,
	),

	flag(SaleClosed, Outcome, 2,
		`\bsign\s+(me|us)\s+up\b`,
		`\b(let's|let\s+us|i('ll|\s+will)|we('ll|\s+will))\s+(go\s+ahead|do\s+it|take\s+it)\b`,
		`\b(i'm|i\s+am|we're|we\s+are)\s+(definitely\s+|totally\s+)?in\s*([.!]|$)`,
		`\b(i'm|i\s+am|we're|we\s+are)\s+sold(\s+on\b|\s*[.!,]|$)`,
		`\bcount\s+(me|us)\s+in\b`,
		`\bwhere\s+do\s+i\s+sign\b`,
		`\bsend\s+(me|us)\s+the\s+(contract|agreement|paperwork)\b`,
	),
	flag(AppointmentSet, Outcome, 2,
		`\b(see\s+you|book(ed)?(\s+(me|it|us)\s+in)?|schedule(d)?|set\s+up|lock\s+(it|that)\s+in|for)\s+(on\s+)?(this\s+|next\s+)?`+weekday+`\b`,
		`\b(book|schedule|set\s+up)\s+(a|an|the)\s+(appointment|meeting|demo|call|visit)\b`,
		`\b(that\s+)?(time|day)\s+works\s+(for\s+)?(me|us)\b`,
	),
	flag(HardObjection, Outcome, 2,
		`\bnot\s+interested\b`,
		`\bno\s+thank(s|\s+you)\b`,
		`\b(we|i)\s+(don't|do\s+not)\s+need\s+(it|this|that|anything)\b`,
		`\bnot\s+for\s+(me|us)\b`,
	),
	flag(SoftObjectionCallback, Outcome, 2,
		`\b(call|ring|try)\s+(me|us)\s+(back|again)\b`,
		`\b(call|ring)\s+(back\s+)?(later|another\s+time|next\s+week|tomorrow)\b`,
		`\b(bad|not\s+a\s+good)\s+time\b`,
		`\b(busy|driving)\s+(right\s+)?now\b`,
	),
	flag(PriceObjection, Outcome, 2,
		`\b(too|very)\s+(expensive|pricey|dear|much)\b`,
		`\b(can't|cannot)\s+afford\b`,
		`\b(cheaper|better\s+(price|deal|rate))\b`,
		`\bout\s+of\s+(my|our)\s+budget\b`,
	),
	flag(AuthorityObjection, Outcome, 2,
		`\b(need|have)\s+to\s+(ask|check\s+with|talk\s+to|speak\s+to)\s+(my|the|our)\s+(wife|husband|partner|boss|manager|director|accountant)\b`,
		`\b(i'm|i\s+am)\s+not\s+the\s+(decision\s+maker|owner|right\s+person)\b`,
		`\bnot\s+my\s+(decision|call)\b`,
	),
	flag(Referral, Outcome, 2,
		`\b(you\s+should|try)\s+(call(ing)?|talk(ing)?\s+to|speak(ing)?\s+(to|with))\s+(my|our|the)\s+\w+\b`,
		`\b(i\s+know|my\s+\w+)\s+(someone|somebody)\s+who\b`,
		`\b(his|her|their)\s+number\s+is\b`,
	),

	flag(RecordingDisclosure, QA, 3,
		`\b(this\s+)?call\s+(is|may\s+be|will\s+be)\s+(being\s+)?recorded\b`,
		`\bfor\s+(quality|training)\s+(and\s+(training|quality)\s+)?purposes\b`,
	),
	flag(VerificationKYC, QA, 3,
		`\b(confirm|verify)\s+(your|the)\s+(date\s+of\s+birth|identity|address|name|details)\b`,
		`\b(last\s+four|security)\s+(digits|question)\b`,
	),

	flag(SentimentAngry, Sentiment, 3,
		`\b(angry|furious|livid|fed\s+up|sick\s+of|ridiculous|outrageous|disgusting|unacceptable)\b`,
		`\bhow\s+(dare|many\s+times)\b`,
		`\bstop\s+wasting\s+my\s+time\b`,
	),
	flag(SentimentPositive, Sentiment, 3,
		`\b(sounds|that's|that\s+is)\s+(great|good|perfect|fantastic|excellent|awesome|brilliant)\b`,
		`\b(love|like)\s+(it|that|the\s+sound\s+of\s+that)\b`,
		`\b(very|really|quite|definitely)\s+interested\b`,
		`\b(i'm|i\s+am|we're|we\s+are)\s+interested\b`,
		`\bthank\s+you\s+so\s+much\b`,
	),
	flag(SentimentConfused, Sentiment, 3,
		`\b(i\s+don't|i\s+do\s+not)\s+understand\b`,
		`\bwhat\s+(do\s+you\s+mean|are\s+you\s+talking\s+about)\b`,
		`\bwho\s+(is\s+this|are\s+you)\b`,
		`\b(sorry|pardon)\s*\?`,
	),
	flag(SentimentUrgent, Sentiment, 3,
		`\b(urgent(ly)?|asap|as\s+soon\s+as\s+possible|right\s+away|immediately)\b`,
		`\b(need|want)\s+(it|this|someone)\s+(today|now)\b`,
	),
}

// Catalog returns the flags in evaluation order.
func Catalog() []Flag {
	return append([]Flag(nil), catalog...)
}

// Lookup returns the flag with the given name.
func Lookup(name string) (Flag, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, f := range catalog {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}
