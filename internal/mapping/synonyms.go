package mapping

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/hr-monitor/internal/model"
)

// Domain selects a synonym dictionary.
type Domain string

// Supported domains.
const (
	DomainHR         Domain = "hr"
	DomainAttendance Domain = "attendance"
)

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainHR, DomainAttendance:
		return Domain(s), nil
	}
	return "", eris.Errorf("mapping: unknown domain %q (want hr or attendance)", s)
}

// Synonyms maps a canonical column to its recognised aliases.
type Synonyms map[string][]string

// Synonyms per domain, keyed by domain.
type SynonymTable map[Domain]Synonyms

var defaultSynonyms = SynonymTable{
	DomainHR: {
		model.ColEmployeeID: {"社員id", "従業員id", "従業員番号", "社員番号", "employee_id", "id"},
		model.ColAge:        {"age"},
		model.ColTenure:     {"勤続", "在籍年数", "yearsinaservice", "tenure", "yearsatcompany"},
		model.ColOvertime:   {"平均残業", "残業時間", "ot", "overtime"},
		model.ColPTORate:    {"有給率", "有休取得率", "有休率", "pto", "vacationrate"},
		model.ColRating:     {"評価", "レーティング", "rating", "評価スコア"},
		model.ColRaises:     {"昇給", "昇給回", "賃上げ回数", "raises"},
		model.ColTransfers:  {"異動回数", "部署異動", "ローテ回数", "transfers"},
	},
	DomainAttendance: {
		model.ColEmployeeID:    {"社員id", "従業員id", "従業員番号", "社員番号", "employee_id", "id"},
		model.ColDate:          {"年月日", "date", "日"},
		model.ColHoursWorked:   {"勤務時間", "実働時間", "労働時間", "稼働時間", "hoursworked"},
		model.ColOvertimeHours: {"残業時間", "ot", "overtime", "超過時間"},
	},
}

// DefaultSynonyms returns a copy of the built-in dictionaries.
func DefaultSynonyms() SynonymTable {
	out := make(SynonymTable, len(defaultSynonyms))
	for d, syn := range defaultSynonyms {
		out[d] = make(Synonyms, len(syn))
		for k, v := range syn {
			out[d][k] = append([]string(nil), v...)
		}
	}
	return out
}

// For returns the dictionary for d (nil when unknown).
func (t SynonymTable) For(d Domain) Synonyms {
	return t[d]
}

// LoadSynonyms reads extra aliases from a YAML file and appends them to the
// built-in dictionaries. The file layout is:
//
//	synonyms:
//	  hr:
//	    年齢: [age_years]
//	  attendance:
//	    日付: [work_date]
func LoadSynonyms(path string) (SynonymTable, error) {
	table := DefaultSynonyms()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read synonyms %s", path)
	}

	var wrapper struct {
		Synonyms map[string]map[string][]string `yaml:"synonyms"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "mapping: parse synonyms")
	}

	for rawDomain, entries := range wrapper.Synonyms {
		d, err := ParseDomain(rawDomain)
		if err != nil {
			return nil, err
		}
		if table[d] == nil {
			table[d] = Synonyms{}
		}
		for canonical, aliases := range entries {
			table[d][canonical] = append(table[d][canonical], aliases...)
		}
	}
	return table, nil
}
