package docstore

import (
	"context"

	"github.com/comigor/triage-go/internal/logger"
)

// SeedResult lists the ids created per collection.
type SeedResult map[string][]string

var sampleDepartments = []Record{
	{"name": "General Practice", "description": "Routine care and first contact", "head": "Dr. Smith", "phone": "555-0100", "location": "Building A, Floor 1", "services": []any{"Check-ups", "Vaccinations", "Referrals"}},
	{"name": "Cardiology", "description": "Heart and circulation", "head": "Dr. Patel", "phone": "555-0110", "location": "Building B, Floor 2", "services": []any{"ECG", "Echocardiogram", "Stress test"}},
	{"name": "Neurology", "description": "Brain and nervous system", "head": "Dr. Okafor", "phone": "555-0120", "location": "Building B, Floor 3", "services": []any{"EEG", "Headache clinic"}},
	{"name": "Radiology", "description": "Imaging", "head": "Dr. Lee", "phone": "555-0130", "location": "Building C, Basement", "services": []any{"X-Ray", "MRI", "Ultrasound"}},
}

var sampleDoctors = []Record{
	{"name": "Dr. Smith", "email": "smith@clinic.example", "phone": "555-0101", "specialization": "Family Medicine", "department": "General Practice", "availability": map[string]any{"days": []any{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, "hours": "09:00-17:00"}, "experience": 15, "rating": 4.7},
	{"name": "Dr. Patel", "email": "patel@clinic.example", "phone": "555-0111", "specialization": "Cardiologist", "department": "Cardiology", "availability": map[string]any{"days": []any{"Monday", "Wednesday", "Friday"}, "hours": "09:00-12:00"}, "experience": 12, "rating": 4.8},
	{"name": "Dr. Okafor", "email": "okafor@clinic.example", "phone": "555-0121", "specialization": "Neurologist", "department": "Neurology", "availability": map[string]any{"days": []any{"Tuesday", "Thursday"}, "hours": "14:00-17:00"}, "experience": 9, "rating": 4.6},
}

var samplePatients = []Record{
	{"name": "Ana Costa", "email": "ana.costa@mail.example", "phone": "555-0201", "dateOfBirth": "1990-04-12", "gender": "female", "address": "12 Elm Street", "bloodType": "O+", "allergies": []any{"Penicillin"}, "medicalHistory": []any{"Asthma"}, "emergencyContact": map[string]any{"name": "Rui Costa", "phone": "555-0202", "relationship": "spouse"}},
	{"name": "John Miller", "email": "john.miller@mail.example", "phone": "555-0203", "dateOfBirth": "1975-11-30", "gender": "male", "address": "48 Oak Avenue", "bloodType": "A-", "allergies": []any{}, "medicalHistory": []any{"Hypertension"}, "emergencyContact": map[string]any{"name": "Sara Miller", "phone": "555-0204", "relationship": "sister"}},
}

// sampleAppointments pair patients and doctors by index.
var sampleAppointments = []struct {
	patient, doctor int
	rec             Record
}{
	{0, 0, Record{"date": "2024-07-01", "time": "09:30", "status": "scheduled", "reason": "Persistent cough"}},
	{1, 1, Record{"date": "2024-07-03", "time": "10:00", "status": "scheduled", "reason": "Chest discomfort on exertion"}},
}

// Seed fills the collections with a small sample clinic: departments,
// doctors, patients and appointments linking them. Records are added next to
// whatever is already stored.
func Seed(ctx context.Context, c *Client) (SeedResult, error) {
	res := SeedResult{}

	create := func(collection string, recs ...Record) error {
		for _, rec := range recs {
			id, err := c.Create(ctx, collection, rec)
			if err != nil {
				return err
			}
			res[collection] = append(res[collection], id)
		}
		logger.L.Info("seeded collection", "collection", collection, "records", len(recs))
		return nil
	}

	if err := create("departments", sampleDepartments...); err != nil {
		return res, err
	}
	if err := create("doctors", sampleDoctors...); err != nil {
		return res, err
	}
	if err := create("patients", samplePatients...); err != nil {
		return res, err
	}

	apts := make([]Record, 0, len(sampleAppointments))
	for _, a := range sampleAppointments {
		rec := Record{
			"patientId":    res["patients"][a.patient],
			"patientName":  samplePatients[a.patient]["name"],
			"patientPhone": samplePatients[a.patient]["phone"],
			"doctorId":     res["doctors"][a.doctor],
			"doctorName":   sampleDoctors[a.doctor]["name"],
			"department":   sampleDoctors[a.doctor]["department"],
		}
		for k, v := range a.rec {
			rec[k] = v
		}
		apts = append(apts, rec)
	}
	if err := create("appointments", apts...); err != nil {
		return res, err
	}
	return res, nil
}
