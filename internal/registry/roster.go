package registry

import "wardtrack/server/internal/model"

// defaultRoster is the hand-maintained facility roster used when no roster
// file is configured. Tags are added here, never discovered at runtime.
var defaultRoster = []model.Tag{
	// Wheelchairs
	{Name: "WHEELCHAIR_A", MAC: "AA:BB:CC:DD:EE:01", Type: "equipment", Attributes: map[string]string{"location": "ward_a"}},
	{Name: "WHEELCHAIR_B", MAC: "AA:BB:CC:DD:EE:02", Type: "equipment", Attributes: map[string]string{"location": "ward_b"}},
	{Name: "WHEELCHAIR_C", MAC: "AA:BB:CC:DD:EE:03", Type: "equipment", Attributes: map[string]string{"location": "emergency"}},

	// Patients
	{Name: "PATIENT_1", MAC: "AA:BB:CC:DD:EE:04", Type: "patient", Attributes: map[string]string{"room": "201"}},
	{Name: "PATIENT_2", MAC: "AA:BB:CC:DD:EE:05", Type: "patient", Attributes: map[string]string{"room": "202"}},
	{Name: "PATIENT_3", MAC: "AA:BB:CC:DD:EE:06", Type: "patient", Attributes: map[string]string{"room": "icu_1"}},

	// Medical staff
	{Name: "NURSE_1", MAC: "AA:BB:CC:DD:EE:07", Type: "staff", Attributes: map[string]string{"role": "head_nurse"}},
	{Name: "NURSE_2", MAC: "AA:BB:CC:DD:EE:08", Type: "staff", Attributes: map[string]string{"role": "rn"}},
	{Name: "DOCTOR_1", MAC: "AA:BB:CC:DD:EE:09", Type: "staff", Attributes: map[string]string{"role": "surgeon"}},

	// Medical equipment
	{Name: "IV_PUMP_1", MAC: "AA:BB:CC:DD:EE:0A", Type: "equipment", Attributes: map[string]string{"location": "pharmacy"}},
	{Name: "DEFIB_1", MAC: "AA:BB:CC:DD:EE:0B", Type: "equipment", Attributes: map[string]string{"location": "emergency"}},
	{Name: "VENTILATOR_1", MAC: "AA:BB:CC:DD:EE:0C", Type: "equipment", Attributes: map[string]string{"location": "icu_1"}},
}

// Default builds the registry from the built-in roster. The roster is
// hand-authored and normalizes cleanly, so construction cannot fail.
func Default() *Registry {
	r, err := Load(defaultRoster)
	if err != nil {
		panic("registry: default roster invalid: " + err.Error())
	}
	return r
}
