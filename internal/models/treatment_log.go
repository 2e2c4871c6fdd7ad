package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// Additional action types
const (
	ActionTourniquet = "tourniquet"
	ActionMedication = "medication"
	ActionBandage    = "bandage"
)

var actionTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// TreatmentAction is a timed field intervention
type TreatmentAction struct {
	Type string `json:"type"`
	Time string `json:"time"` // HH:MM
}

// Validate checks the action type and its HH:MM time
func (a TreatmentAction) Validate() error {
	switch a.Type {
	case ActionTourniquet, ActionMedication, ActionBandage:
	default:
		return fmt.Errorf("action type must be one of [%s, %s, %s]", ActionTourniquet, ActionMedication, ActionBandage)
	}
	if !actionTimePattern.MatchString(a.Time) {
		return fmt.Errorf("action time %q must be HH:MM", a.Time)
	}
	return nil
}

// VitalSigns is the snapshot attached to a saved log
type VitalSigns struct {
	Pulse         *float64 `json:"pulse"`
	OxygenLevel   *float64 `json:"oxygenLevel"`
	BloodPressure string   `json:"bloodPressure"` // sys/dia
}

// TreatmentLog is a saved casualty treatment record
type TreatmentLog struct {
	ID                string            `json:"id" gorm:"primaryKey;type:uuid"`
	UserID            string            `json:"userId" gorm:"type:uuid;not null;index"`
	SessionID         *string           `json:"sessionId,omitempty" gorm:"type:uuid"`
	Casualty          string            `json:"casualty"`
	StartTime         time.Time         `json:"startTime" gorm:"not null"`
	Action            string            `json:"action"`
	Medication        string            `json:"medication"`
	Notes             string            `json:"notes"`
	AdditionalActions []TreatmentAction `json:"additionalActions" gorm:"-"`
	ActionsRaw        string            `json:"-" gorm:"column:additional_actions;type:jsonb"`
	VitalSigns        *VitalSigns       `json:"vitalSigns,omitempty" gorm:"-"`
	VitalSignsRaw     *string           `json:"-" gorm:"column:vital_signs;type:jsonb"`
	TransferredAt     *time.Time        `json:"transferredAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// TableName specifies the table name for TreatmentLog
func (TreatmentLog) TableName() string {
	return "treatment_logs"
}

// BeforeSave marshals the JSON columns (GORM hook)
func (l *TreatmentLog) BeforeSave(tx *gorm.DB) error {
	actions := l.AdditionalActions
	if actions == nil {
		actions = []TreatmentAction{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	l.ActionsRaw = string(raw)

	if l.VitalSigns != nil {
		raw, err := json.Marshal(l.VitalSigns)
		if err != nil {
			return err
		}
		s := string(raw)
		l.VitalSignsRaw = &s
	}
	return nil
}

// AfterFind unmarshals the JSON columns (GORM hook)
func (l *TreatmentLog) AfterFind(tx *gorm.DB) error {
	l.AdditionalActions = []TreatmentAction{}
	if l.ActionsRaw != "" {
		if err := json.Unmarshal([]byte(l.ActionsRaw), &l.AdditionalActions); err != nil {
			return err
		}
	}
	if l.VitalSignsRaw != nil && *l.VitalSignsRaw != "" {
		l.VitalSigns = &VitalSigns{}
		if err := json.Unmarshal([]byte(*l.VitalSignsRaw), l.VitalSigns); err != nil {
			return err
		}
	}
	return nil
}
