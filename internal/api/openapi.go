package api

import (
	"net/http"

	"github.com/backofhouse/steward/internal/config"
	"github.com/backofhouse/steward/internal/enforcement"
	"github.com/backofhouse/steward/pkg/openapi"
)

// BuildSpec constructs the OpenAPI document for the API module. The
// document is serialized once at startup and served statically.
func BuildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(domainSchemas())

	addStandardsPaths(spec)
	addSignalPaths(spec)
	addFeedbackPaths(spec)
	addEventPaths(spec)
	addEscalationPaths(spec)
	addInboxPaths(spec)

	return spec
}

func domainSchemas() map[string]*openapi.Schema {
	severities := make([]string, 0, len(enforcement.Severities()))
	for _, s := range enforcement.Severities() {
		severities = append(severities, string(s))
	}

	statuses := make([]string, 0, len(enforcement.Statuses()))
	for _, s := range enforcement.Statuses() {
		statuses = append(statuses, string(s))
	}

	return map[string]*openapi.Schema{
		"Signal": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             {Type: "string", Format: "uuid"},
				"tenant_id":      {Type: "string", Format: "uuid"},
				"venue_id":       {Type: "string", Format: "uuid"},
				"business_date":  {Type: "string", Format: "date-time"},
				"domain":         {Type: "string", Example: "cash"},
				"signal_type":    {Type: "string", Example: "deposit_reconciliation_gap"},
				"source":         {Type: "string"},
				"severity":       openapi.EnumSchema("Signal severity", severities...),
				"confidence":     {Type: "number", Example: 0.94},
				"impact_amount":  {Type: "number"},
				"impact_minutes": {Type: "integer"},
				"entity_ref":     {Type: "string"},
				"dedupe_key":     {Type: "string"},
				"payload":        {Type: "object"},
				"created_at":     {Type: "string", Format: "date-time"},
			},
		},
		"SignalIngest": {
			Type:     "object",
			Required: []string{"business_date", "domain", "signal_type", "source", "severity", "confidence", "dedupe_key"},
			Properties: map[string]*openapi.Schema{
				"venue_id":       {Type: "string", Format: "uuid"},
				"business_date":  {Type: "string", Format: "date", Example: "2026-08-14"},
				"domain":         {Type: "string"},
				"signal_type":    {Type: "string"},
				"source":         {Type: "string"},
				"severity":       openapi.EnumSchema("Signal severity", severities...),
				"confidence":     {Type: "number"},
				"impact_amount":  {Type: "number"},
				"impact_minutes": {Type: "integer"},
				"entity_ref":     {Type: "string"},
				"dedupe_key":     {Type: "string", Description: "Producer-stable key for idempotent redelivery"},
				"payload":        {Type: "object"},
				"evidence":       {Type: "object"},
				"verification":   {Type: "object"},
			},
		},
		"IngestResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"signal":      openapi.SchemaRef("Signal"),
				"duplicate":   {Type: "boolean", Description: "True when the dedupe key matched a stored signal"},
				"feedback_id": {Type: "string", Format: "uuid", Description: "Feedback object the signal generated or joined"},
			},
		},
		"FeedbackObject": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                {Type: "string", Format: "uuid"},
				"tenant_id":         {Type: "string", Format: "uuid"},
				"venue_id":          {Type: "string", Format: "uuid"},
				"business_date":     {Type: "string", Format: "date-time"},
				"domain":            {Type: "string"},
				"origin":            openapi.EnumSchema("How the object entered the system", "signal", "imported"),
				"signal_type":       {Type: "string"},
				"title":             {Type: "string"},
				"message":           {Type: "string"},
				"response_required": {Type: "string"},
				"severity":          openapi.EnumSchema("Object severity", severities...),
				"owner_role":        {Type: "string", Example: "venue_manager"},
				"assignee":          {Type: "string"},
				"due_at":            {Type: "string", Format: "date-time"},
				"status":            openapi.EnumSchema("Lifecycle status", statuses...),
				"ack_at":            {Type: "string", Format: "date-time"},
				"action_at":         {Type: "string", Format: "date-time"},
				"closed_at":         {Type: "string", Format: "date-time"},
				"action_summary":    {Type: "string"},
				"waive_reason":      {Type: "string"},
				"resolve_reason":    {Type: "string"},
				"evidence":          {Type: "object"},
				"verification":      {Type: "object"},
				"created_at":        {Type: "string", Format: "date-time"},
				"updated_at":        {Type: "string", Format: "date-time"},
			},
		},
		"LedgerEvent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            {Type: "integer", Format: "int64"},
				"tenant_id":     {Type: "string", Format: "uuid"},
				"venue_id":      {Type: "string", Format: "uuid"},
				"feedback_id":   {Type: "string", Format: "uuid"},
				"business_date": {Type: "string", Format: "date-time"},
				"event_type":    {Type: "string", Example: "transition"},
				"actor":         {Type: "string"},
				"actor_role":    {Type: "string"},
				"from_status":   {Type: "string"},
				"to_status":     {Type: "string"},
				"reason":        {Type: "string"},
				"detail":        {Type: "object"},
				"recorded_at":   {Type: "string", Format: "date-time"},
			},
		},
		"StandardValue": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"domain":         {Type: "string"},
				"key":            {Type: "string", Example: "deposit_gap_threshold"},
				"kind":           {Type: "string"},
				"unit":           {Type: "string"},
				"value":          {Type: "number"},
				"standard_id":    {Type: "string", Format: "uuid"},
				"layer":          openapi.EnumSchema("Which layer supplied the value", "platform", "tenant", "venue"),
				"effective_from": {Type: "string", Format: "date-time"},
				"bound":          openapi.SchemaRef("Bound"),
			},
		},
		"StandardValueSet": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"values": {
					Type:                 "object",
					Description:          "Resolved values keyed by standard key",
					AdditionalProperties: openapi.SchemaRef("StandardValue"),
				},
				"missing": {
					Type:        "array",
					Description: "Keys with no configured value for the scope",
					Items:       &openapi.Schema{Type: "string"},
				},
			},
		},
		"Bound": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"min": {Type: "number"},
				"max": {Type: "number"},
			},
		},
		"Briefing": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"tenant_id":       {Type: "string", Format: "uuid"},
				"venue_id":        {Type: "string", Format: "uuid"},
				"business_date":   {Type: "string", Format: "date-time"},
				"reviewed_by":     {Type: "string"},
				"reviewed_at":     {Type: "string", Format: "date-time"},
				"open_count":      {Type: "integer"},
				"critical_count":  {Type: "integer"},
				"escalated_count": {Type: "integer"},
				"snapshot":        {Type: "object", Description: "Open counts by domain at review time"},
				"archive_key":     {Type: "string", Description: "Blob key of the frozen snapshot, once archived"},
			},
		},
		"InboxItem": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                {Type: "string", Format: "uuid"},
				"venue_id":          {Type: "string", Format: "uuid"},
				"business_date":     {Type: "string", Format: "date-time"},
				"domain":            {Type: "string"},
				"origin":            {Type: "string"},
				"signal_type":       {Type: "string"},
				"title":             {Type: "string"},
				"severity":          openapi.EnumSchema("Item severity", severities...),
				"owner_role":        {Type: "string"},
				"response_required": {Type: "string"},
				"status":            openapi.EnumSchema("Lifecycle status", statuses...),
				"due_at":            {Type: "string", Format: "date-time"},
				"created_at":        {Type: "string", Format: "date-time"},
			},
		},
		"InboxView": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"items": {Type: "array", Items: openapi.SchemaRef("InboxItem")},
				"counts": {
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"open":      {Type: "integer"},
						"critical":  {Type: "integer"},
						"escalated": {Type: "integer"},
						"due_soon":  {Type: "integer"},
					},
				},
			},
		},
		"GateDecision": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"can_proceed": {Type: "boolean"},
				"blocking": {
					Type:        "array",
					Description: "Unresolved critical items holding the gate closed",
					Items: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"id":          {Type: "string", Format: "uuid"},
							"venue_id":    {Type: "string", Format: "uuid"},
							"signal_type": {Type: "string"},
							"title":       {Type: "string"},
							"status":      {Type: "string"},
							"due_at":      {Type: "string", Format: "date-time"},
						},
					},
				},
			},
		},
		"SweepResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"started_at":  {Type: "string", Format: "date-time"},
				"elapsed_ms":  {Type: "integer", Format: "int64"},
				"dry_run":     {Type: "boolean"},
				"scopes":      {Type: "integer"},
				"escalations": {Type: "integer"},
				"expiries":    {Type: "integer"},
				"errors":      {Type: "array", Items: &openapi.Schema{Type: "object"}},
			},
		},
		"PolicyPack": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"routes":          {Type: "object", Description: "Escalation routes by severity and current role"},
				"waiver_roles":    {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"stall_slas":      {Type: "object"},
				"pattern_windows": {Type: "array", Items: &openapi.Schema{Type: "object"}},
				"due_ttls":        {Type: "object"},
			},
		},
	}
}

func addStandardsPaths(spec *openapi.Spec) {
	tags := []string{"Standards"}

	spec.Path("/standards").Get = &openapi.Operation{
		Summary: "List current effective standards for the caller's tenant",
		Tags:    tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("venue_id", "string", "Resolve against a venue's layered view", false),
			openapi.QueryParam("domain", "string", "Restrict to one operational domain", false),
		},
		Responses: arrayResponses("StandardValue"),
	}
	spec.Path("/standards/resolve").Get = &openapi.Operation{
		Summary: "Resolve one standard key through the layer precedence",
		Tags:    tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("domain", "string", "Operational domain", true),
			openapi.QueryParam("key", "string", "Standard key", true),
			openapi.QueryParam("venue_id", "string", "Venue scope", false),
			openapi.QueryParam("as_of", "string", "Resolve as of this instant", false),
		},
		Responses: objectResponses(http.StatusOK, "Resolved value", "StandardValue"),
	}
	spec.Path("/standards/resolve-set").Get = &openapi.Operation{
		Summary: "Resolve several standard keys for one scope in a single pass",
		Tags:    tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("domain", "string", "Operational domain", true),
			openapi.QueryParam("keys", "string", "Comma-separated standard keys", true),
			openapi.QueryParam("venue_id", "string", "Venue scope", false),
			openapi.QueryParam("as_of", "string", "Resolve as of this instant", false),
		},
		Responses: objectResponses(http.StatusOK, "Resolved values with missing keys listed", "StandardValueSet"),
	}
	spec.Path("/standards/history").Get = &openapi.Operation{
		Summary: "List superseded values for a standard key",
		Tags:    tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("domain", "string", "Operational domain", true),
			openapi.QueryParam("key", "string", "Standard key", true),
			openapi.QueryParam("venue_id", "string", "Venue scope", false),
		},
		Responses: arrayResponses("StandardValue"),
	}
	spec.Path("/standards/calibrations").Post = &openapi.Operation{
		Summary:     "Record a tenant or venue calibration of a platform standard",
		Tags:        tags,
		RequestBody: openapi.RequestBodyJSON("StandardValue", true),
		Responses:   objectResponses(http.StatusCreated, "Calibration recorded", "StandardValue"),
	}
	spec.Path("/standards/bounds").Get = &openapi.Operation{
		Summary:   "List calibration bounds",
		Tags:      tags,
		Responses: arrayResponses("Bound"),
	}
	spec.Path("/standards/bounds").Post = &openapi.Operation{
		Summary:     "Set the calibration bound for a standard key",
		Tags:        tags,
		RequestBody: openapi.RequestBodyJSON("Bound", true),
		Responses:   objectResponses(http.StatusCreated, "Bound recorded", "Bound"),
	}
}

func addSignalPaths(spec *openapi.Spec) {
	tags := []string{"Signals"}

	ingestResponses := objectResponses(http.StatusCreated, "Signal accepted", "IngestResult")
	ingestResponses[http.StatusOK] = openapi.ResponseJSON("Duplicate delivery; stored outcome returned", "IngestResult")

	spec.Path("/signals").Post = &openapi.Operation{
		Summary:     "Ingest one detection signal",
		Description: "Idempotent on dedupe_key: redelivery returns the stored signal without a new feedback object.",
		Tags:        tags,
		RequestBody: openapi.RequestBodyJSON("SignalIngest", true),
		Responses:   ingestResponses,
	}
	spec.Path("/signals/batch").Post = &openapi.Operation{
		Summary:     "Ingest a batch of detection signals",
		Description: "Each entry is processed independently; failures are reported per entry.",
		Tags:        tags,
		RequestBody: openapi.RequestBodyJSON("SignalIngest", true),
		Responses:   arrayResponses("IngestResult"),
	}
	spec.Path("/signals").Get = &openapi.Operation{
		Summary:   "List signals for the caller's tenant",
		Tags:      tags,
		Responses: listResponses("Signal"),
	}
	spec.Path("/signals/{id}").Get = &openapi.Operation{
		Summary:    "Find a signal with its generated feedback reference",
		Tags:       tags,
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "string", "uuid", "Signal identifier")},
		Responses:  objectResponses(http.StatusOK, "Signal detail", "Signal"),
	}
}

func addFeedbackPaths(spec *openapi.Spec) {
	tags := []string{"Feedback"}
	idParam := openapi.PathParam("id", "string", "uuid", "Feedback object identifier")

	spec.Path("/feedback").Get = &openapi.Operation{
		Summary: "List feedback objects for the caller's tenant",
		Tags:    tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("venue_id", "string", "Venue scope", false),
			openapi.QueryParam("status", "string", "Restrict to one lifecycle status", false),
			openapi.QueryParam("severity", "string", "Restrict to one severity", false),
			openapi.QueryParam("domain", "string", "Restrict to one domain", false),
		},
		Responses: listResponses("FeedbackObject"),
	}
	spec.Path("/feedback/import").Post = &openapi.Operation{
		Summary:     "Import a feedback object from an external review system",
		Tags:        tags,
		RequestBody: openapi.RequestBodyJSON("FeedbackObject", true),
		Responses:   objectResponses(http.StatusCreated, "Object imported", "FeedbackObject"),
	}
	spec.Path("/feedback/{id}").Get = &openapi.Operation{
		Summary:    "Find a feedback object",
		Tags:       tags,
		Parameters: []*openapi.Parameter{idParam},
		Responses:  objectResponses(http.StatusOK, "Feedback object", "FeedbackObject"),
	}
	spec.Path("/feedback/{id}/events").Get = &openapi.Operation{
		Summary:    "List the object's ledger events in recorded order",
		Tags:       tags,
		Parameters: []*openapi.Parameter{idParam},
		Responses:  arrayResponses("LedgerEvent"),
	}
	spec.Path("/feedback/{id}/signals").Get = &openapi.Operation{
		Summary:    "List the signals folded into the object",
		Tags:       tags,
		Parameters: []*openapi.Parameter{idParam},
		Responses:  arrayResponses("Signal"),
	}
	spec.Path("/feedback/{id}/audit").Get = &openapi.Operation{
		Summary:     "Replay the object's ledger and compare against its stored state",
		Tags:        tags,
		Parameters:  []*openapi.Parameter{idParam},
		Responses:   objectResponses(http.StatusOK, "Audit result", "FeedbackObject"),
		Description: "Detects drift between the event ledger and the stored status.",
	}

	transitions := []struct {
		segment string
		summary string
	}{
		{"acknowledge", "Acknowledge the object"},
		{"action", "Submit corrective action"},
		{"verify", "Record a verification outcome"},
		{"resolve", "Resolve the object"},
		{"waive", "Waive the object"},
		{"escalate", "Escalate the object to the next role"},
	}
	for _, tr := range transitions {
		spec.Path("/feedback/{id}/"+tr.segment).Post = &openapi.Operation{
			Summary:    tr.summary,
			Tags:       tags,
			Parameters: []*openapi.Parameter{idParam},
			Responses:  objectResponses(http.StatusOK, "Updated object", "FeedbackObject"),
		}
	}
}

func addEventPaths(spec *openapi.Spec) {
	spec.Path("/events").Get = &openapi.Operation{
		Summary: "List ledger events for the caller's tenant",
		Tags:    []string{"Events"},
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("venue_id", "string", "Venue scope", false),
			openapi.QueryParam("event_type", "string", "Restrict to one event type", false),
			openapi.QueryParam("from", "string", "Business date lower bound (YYYY-MM-DD)", false),
			openapi.QueryParam("to", "string", "Business date upper bound (YYYY-MM-DD)", false),
		},
		Responses: listResponses("LedgerEvent"),
	}
}

func addEscalationPaths(spec *openapi.Spec) {
	tags := []string{"Escalations"}

	spec.Path("/escalations/sweep").Post = &openapi.Operation{
		Summary:     "Run an escalation sweep over the caller's tenant",
		Description: "Applies the stall, pattern, and silence rules. dry_run reports without writing.",
		Tags:        tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("venue_id", "string", "Restrict the sweep to one venue", false),
			openapi.QueryParam("as_of", "string", "Evaluate as of this instant", false),
			openapi.QueryParam("dry_run", "boolean", "Report without escalating or expiring", false),
		},
		Responses: objectResponses(http.StatusOK, "Sweep summary", "SweepResult"),
	}
	spec.Path("/escalations/policy").Get = &openapi.Operation{
		Summary:   "Return the active escalation policy pack",
		Tags:      tags,
		Responses: objectResponses(http.StatusOK, "Policy pack", "PolicyPack"),
	}
}

func addInboxPaths(spec *openapi.Spec) {
	tags := []string{"Inbox"}
	venueParam := openapi.PathParam("venue", "string", "uuid", "Venue identifier")
	dateParam := openapi.PathParam("date", "string", "date", "Business date (YYYY-MM-DD)")

	spec.Path("/inbox").Get = &openapi.Operation{
		Summary: "Return the prioritized open items for the caller's tenant",
		Tags:    tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("venue_id", "string", "Venue scope", false),
			openapi.QueryParam("from", "string", "Business date lower bound (YYYY-MM-DD)", false),
			openapi.QueryParam("to", "string", "Business date upper bound (YYYY-MM-DD)", false),
		},
		Responses: objectResponses(http.StatusOK, "Inbox view", "InboxView"),
	}
	spec.Path("/briefings").Post = &openapi.Operation{
		Summary:     "Record a morning briefing review",
		Description: "One review per venue and business date; force re-reviews and resets the archive.",
		Tags:        tags,
		RequestBody: openapi.RequestBodyJSON("Briefing", true),
		Responses:   objectResponses(http.StatusCreated, "Review recorded", "Briefing"),
	}
	spec.Path("/briefings/{venue}/{date}").Get = &openapi.Operation{
		Summary:    "Find the recorded review for a venue and date",
		Tags:       tags,
		Parameters: []*openapi.Parameter{venueParam, dateParam},
		Responses:  objectResponses(http.StatusOK, "Briefing", "Briefing"),
	}
	spec.Path("/briefings/{venue}/{date}/archive").Get = &openapi.Operation{
		Summary:    "Download the frozen briefing snapshot",
		Tags:       tags,
		Parameters: []*openapi.Parameter{venueParam, dateParam},
		Responses:  objectResponses(http.StatusOK, "Archived snapshot", "Briefing"),
	}
	spec.Path("/gate").Get = &openapi.Operation{
		Summary:     "Answer whether automation may proceed for a venue",
		Description: "Blocks while unresolved critical objects that require action remain at or before the date.",
		Tags:        tags,
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("venue_id", "string", "Venue identifier", true),
			openapi.QueryParam("date", "string", "Business date (YYYY-MM-DD), default today", false),
		},
		Responses: objectResponses(http.StatusOK, "Gate decision", "GateDecision"),
	}
}

func objectResponses(status int, description, schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{
		status:                         openapi.ResponseJSON(description, schema),
		http.StatusBadRequest:          openapi.ResponseRef("BadRequest"),
		http.StatusUnauthorized:        openapi.ResponseRef("Unauthorized"),
		http.StatusNotFound:            openapi.ResponseRef("NotFound"),
		http.StatusConflict:            openapi.ResponseRef("Conflict"),
		http.StatusInternalServerError: openapi.ResponseRef("InternalError"),
	}
}

func arrayResponses(schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{
		http.StatusOK: {
			Description: "Result list",
			Content: map[string]*openapi.MediaType{
				"application/json": {
					Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef(schema)},
				},
			},
		},
		http.StatusBadRequest:          openapi.ResponseRef("BadRequest"),
		http.StatusUnauthorized:        openapi.ResponseRef("Unauthorized"),
		http.StatusInternalServerError: openapi.ResponseRef("InternalError"),
	}
}

func listResponses(schema string) map[int]*openapi.Response {
	return map[int]*openapi.Response{
		http.StatusOK: {
			Description: "Result page",
			Content: map[string]*openapi.MediaType{
				"application/json": {
					Schema: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"data":        {Type: "array", Items: openapi.SchemaRef(schema)},
							"total":       {Type: "integer"},
							"page":        {Type: "integer"},
							"page_size":   {Type: "integer"},
							"total_pages": {Type: "integer"},
						},
					},
				},
			},
		},
		http.StatusBadRequest:          openapi.ResponseRef("BadRequest"),
		http.StatusUnauthorized:        openapi.ResponseRef("Unauthorized"),
		http.StatusInternalServerError: openapi.ResponseRef("InternalError"),
	}
}
