package outbox

import "example.com/timesheet/internal/events"

const shiftSubmittedSchema = `{
  "type": "object",
  "title": "ShiftSubmitted",
  "properties": {
    "timesheet_id": {"type": "integer"},
    "master_id": {"type": "integer"},
    "factory_id": {"type": "integer"},
    "at": {"type": "string", "format": "date-time"},
    "evidence_link": {"type": "string"},
    "positions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "position_id": {"type": "integer"},
          "worker_id": {"type": "integer"},
          "activity_id": {"type": "integer"}
        },
        "required": ["position_id", "worker_id", "activity_id"]
      }
    }
  },
  "required": ["timesheet_id", "master_id", "factory_id", "at", "positions"],
  "additionalProperties": false
}`

const positionCorrectedSchema = `{
  "type": "object",
  "title": "PositionCorrected",
  "properties": {
    "correction_id": {"type": "integer"},
    "position_id": {"type": "integer"},
    "admin_id": {"type": "integer"},
    "new_activity_id": {"type": "integer"},
    "reason": {"type": "string"},
    "at": {"type": "string", "format": "date-time"}
  },
  "required": ["correction_id", "position_id", "admin_id", "new_activity_id", "reason", "at"],
  "additionalProperties": false
}`

const profileChangedSchema = `{
  "type": "object",
  "title": "ProfileChanged",
  "properties": {
    "worker_id": {"type": "integer"},
    "year": {"type": "integer"},
    "month": {"type": "integer", "minimum": 1, "maximum": 12},
    "job": {"type": "string"},
    "rate": {"type": "string"}
  },
  "required": ["worker_id", "year", "month", "job", "rate"],
  "additionalProperties": false
}`

const reportRequestedSchema = `{
  "type": "object",
  "title": "ReportRequested",
  "properties": {
    "request_id": {"type": "string"},
    "requested_by": {"type": "integer"},
    "year": {"type": "integer"},
    "month": {"type": "integer", "minimum": 1, "maximum": 12},
    "factory_ids": {"type": ["array", "null"], "items": {"type": "integer"}},
    "requested_at": {"type": "string", "format": "date-time"}
  },
  "required": ["request_id", "requested_by", "year", "month", "requested_at"],
  "additionalProperties": false
}`

var schemaCatalog = map[string]string{
	events.TypeShiftSubmitted:    shiftSubmittedSchema,
	events.TypePositionCorrected: positionCorrectedSchema,
	events.TypeProfileChanged:    profileChangedSchema,
	events.TypeReportRequested:   reportRequestedSchema,
}
