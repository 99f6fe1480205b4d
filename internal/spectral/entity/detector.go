package entity

// Detector is a physical detector unit.
type Detector struct {
	ID   string `gorm:"primaryKey;size:36"`
	Name string `gorm:"uniqueIndex;size:150"`
	SN   string `gorm:"size:80"`
	Type string `gorm:"size:80"`
}

// DetectorCalib maps channel index to energy:
//
//	energy(i) = Coef0 + i*Coef1 + i*i*Coef2  (electron volts)
//
// Coef2 is carried for completeness; the pipeline currently uses the linear
// part only.
type DetectorCalib struct {
	ID          string  `gorm:"primaryKey;size:36"`
	Name        string  `gorm:"uniqueIndex;size:150"`
	DetectorID  *string `gorm:"size:36"`
	Description string  `gorm:"type:text"`
	Coef0       float64
	Coef1       float64
	Coef2       float64
}

// Energy returns the calibrated energy of a channel index in eV, using the
// linear part of the calibration.
func (c *DetectorCalib) Energy(channel int) float64 {
	return c.Coef0 + float64(channel)*c.Coef1
}
