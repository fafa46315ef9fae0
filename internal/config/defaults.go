package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 64 << 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Storage.ExtractionsDir == "" {
		cfg.Storage.ExtractionsDir = "/usr/local/var/revalida/extractions"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/revalida/data/db/catalog.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/revalida/data/indices/bleve"
	}
	if cfg.Extraction.MaxQuestionNumber == 0 {
		cfg.Extraction.MaxQuestionNumber = 200
	}
	if cfg.Extraction.MaxStemChars == 0 {
		cfg.Extraction.MaxStemChars = 8000
	}
	if cfg.Extraction.AnswerKeyTailChars == 0 {
		cfg.Extraction.AnswerKeyTailChars = 3000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	ApplyRankingDefaults(&cfg.Search.Ranking)
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

// ApplyRankingDefaults sets default values for any zero values in r.
func ApplyRankingDefaults(r *RankingConfig) {
	if r.StemWeight == 0 {
		r.StemWeight = 1.0
	}
	if r.OptionsWeight == 0 {
		r.OptionsWeight = 0.5
	}
	if r.PhraseMatchScore == 0 {
		r.PhraseMatchScore = 1.0
	}
	if r.AllTermsScore == 0 {
		r.AllTermsScore = 0.6
	}
	if r.InOrderBonus == 0 {
		r.InOrderBonus = 0.2
	}
	if r.PositionBoostRunes == 0 {
		r.PositionBoostRunes = 120
	}
	if r.PositionBoostMultiplier == 0 {
		r.PositionBoostMultiplier = 1.2
	}
}
