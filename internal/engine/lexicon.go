package engine

import "regexp"

// Lexicon is a named, case-insensitive pattern set used by the heuristic
// passes. Lexicons are a data table: scoring logic references them by name
// and never embeds patterns inline, so they can be tuned without touching
// the math.
type Lexicon struct {
	Name    string
	pattern *regexp.Regexp
}

func newLexicon(name, pattern string) Lexicon {
	return Lexicon{Name: name, pattern: regexp.MustCompile(`(?i)` + pattern)}
}

// Matches reports whether the lexicon fires at least once.
func (l Lexicon) Matches(body string) bool {
	return l.pattern.MatchString(body)
}

// Hits counts the pattern occurrences in the body.
func (l Lexicon) Hits(body string) int {
	return len(l.pattern.FindAllStringIndex(body, -1))
}

var (
	lexUrgency = newLexicon("urgency",
		`\b(asap|urgent(ly)?|time[- ]sensitive|deadline|eod|eow|by (today|tomorrow|tonight)|right away|immediately)\b`)

	lexNeed = newLexicon("need",
		`\b(need(s|ed)?|looking for|anyone (know|have|tried|using)|can (anyone|someone)|help (with|me)|how do (i|we)|advice|recommend(ation)?s?|suggestions?)\b`)

	lexDecision = newLexicon("decision",
		`\b(should we|decid(e|ing)|decision|choos(e|ing)|pick between|vote|which (one|option|way)|pros and cons|trade[- ]?offs?)\b`)

	lexCoordination = newLexicon("coordination",
		`\b(schedule|calendar|meet(ing|up)?|sync(ing)? up|organiz(e|ing)|coordinat(e|ing)|plan(ning)?|logistics|who('s| is) (in|coming))\b`)

	lexCreation = newLexicon("creation",
		`\b(build(ing)?|creat(e|ing)|prototype|draft(ing)?|launch(ing)?|ship(ping|ped)?|write[- ]?up|demo|hack(ing)? on)\b`)

	lexSupport = newLexicon("support",
		`\b(congrats|congratulations|thank(s| you)|appreciate|welcome aboard|sorry to hear|feel better|good luck|well done|amazing work)\b`)

	lexDependency = newLexicon("dependency",
		`\b(blocked (on|by)|blocker|waiting (on|for)|depends on|can.?t (proceed|move forward) (until|without)|stuck (on|until)|holding (this |us )?up)\b`)

	lexRisk = newLexicon("risk",
		`\b(risk(y|s)?|breaking|broken|outage|down(time)?|failing|failure|security|vulnerab(le|ility)|deprecat(ed|ion)|losing (data|users|money))\b`)

	lexHighEffort = newLexicon("high_effort",
		`\b((big|heavy) lift|major (effort|project|undertaking)|rewrite|overhaul|migration|months? of work|deep dive|end[- ]to[- ]end)\b`)

	lexQuickWin = newLexicon("quick_win",
		`\b(quick (win|fix|question|one)|one[- ]liner|small (fix|change|tweak)|easy (fix|win)|low[- ]hanging|five minutes|trivial)\b`)

	lexGroupImpact = newLexicon("group_impact",
		`\b(everyone|all of us|the (whole )?group|community|for the team|we should all|group[- ]wide|broadly useful)\b`)

	lexDMSignal = newLexicon("dm_signal",
		`\b(dm (me|you)|dm.?d you|take (this|it) offline|chat (privately|1:1|one on one)|ping me|message me (directly|privately)|in private)\b`)

	lexReplySignal = newLexicon("reply_signal",
		`(\b(agree|disagree|good point|same here|me too|exactly|fair enough|makes sense|you mentioned|as you said|responding to)\b|(^|\s)\+1\b)`)
)
