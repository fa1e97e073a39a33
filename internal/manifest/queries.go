package manifest

// Scans returns every scan record in log order.
func (l *Log) Scans() ([]ScanMeta, error) {
	return collect[ScanMeta](l)
}

// Crops returns every crop record in log order.
func (l *Log) Crops() ([]CardCropMeta, error) {
	return collect[CardCropMeta](l)
}

// Classifications returns every class record in log order.
func (l *Log) Classifications() ([]ClassRecord, error) {
	return collect[ClassRecord](l)
}

// PendingCrops returns the crops that have no class record yet.
func (l *Log) PendingCrops() ([]CardCropMeta, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	classified := make(map[string]bool)
	for _, r := range records {
		if c, ok := r.(ClassRecord); ok {
			classified[c.CropID] = true
		}
	}
	var pending []CardCropMeta
	for _, r := range records {
		if c, ok := r.(CardCropMeta); ok && !classified[c.CropID] {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// CropsForScan returns the crops extracted from scanID.
func (l *Log) CropsForScan(scanID string) ([]CardCropMeta, error) {
	crops, err := l.Crops()
	if err != nil {
		return nil, err
	}
	var out []CardCropMeta
	for _, c := range crops {
		if c.SourceScanID == scanID {
			out = append(out, c)
		}
	}
	return out, nil
}

func collect[T Record](l *Log) ([]T, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []T
	for _, r := range records {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
