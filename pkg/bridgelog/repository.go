package bridgelog

import "gorm.io/gorm"

// Repository handles CallRecord persistence, mirroring the teacher's
// TransmissionRepository query surface.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(rec *CallRecord) error {
	return r.db.Create(rec).Error
}

func (r *Repository) GetRecent(limit int) ([]CallRecord, error) {
	var recs []CallRecord
	err := r.db.Order("start_time DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (r *Repository) GetBySrcID(srcID uint32, limit int) ([]CallRecord, error) {
	var recs []CallRecord
	err := r.db.Where("src_id = ?", srcID).Order("start_time DESC").Limit(limit).Find(&recs).Error
	return recs, err
}
