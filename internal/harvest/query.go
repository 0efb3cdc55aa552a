package harvest

import "strings"

// Query is the set of Sales Navigator lead filters for one run. Every field
// is optional, but a normalized query must keep at least one non-empty
// field or the crawl is refused.
type Query struct {
	Search string `json:"search,omitempty" mapstructure:"search"`

	CurrentCompanies         []string `json:"currentCompanies,omitempty" mapstructure:"current_companies"`
	PastCompanies            []string `json:"pastCompanies,omitempty" mapstructure:"past_companies"`
	CurrentJobTitles         []string `json:"currentJobTitles,omitempty" mapstructure:"current_job_titles"`
	PastJobTitles            []string `json:"pastJobTitles,omitempty" mapstructure:"past_job_titles"`
	FirstNames               []string `json:"firstNames,omitempty" mapstructure:"first_names"`
	LastNames                []string `json:"lastNames,omitempty" mapstructure:"last_names"`
	Schools                  []string `json:"schools,omitempty" mapstructure:"schools"`
	Locations                []string `json:"locations,omitempty" mapstructure:"locations"`
	IndustryIDs              []string `json:"industryIds,omitempty" mapstructure:"industry_ids"`
	YearsOfExperienceIDs     []string `json:"yearsOfExperienceIds,omitempty" mapstructure:"years_of_experience_ids"`
	YearsAtCurrentCompanyIDs []string `json:"yearsAtCurrentCompanyIds,omitempty" mapstructure:"years_at_current_company_ids"`
	SeniorityLevelIDs        []string `json:"seniorityLevelIds,omitempty" mapstructure:"seniority_level_ids"`
	FunctionIDs              []string `json:"functionIds,omitempty" mapstructure:"function_ids"`
	ProfileLanguages         []string `json:"profileLanguages,omitempty" mapstructure:"profile_languages"`

	ExcludeCurrentCompanies  []string `json:"excludeCurrentCompanies,omitempty" mapstructure:"exclude_current_companies"`
	ExcludePastCompanies     []string `json:"excludePastCompanies,omitempty" mapstructure:"exclude_past_companies"`
	ExcludeLocations         []string `json:"excludeLocations,omitempty" mapstructure:"exclude_locations"`
	ExcludeGeoIDs            []string `json:"excludeGeoIds,omitempty" mapstructure:"exclude_geo_ids"`
	ExcludeSchools           []string `json:"excludeSchools,omitempty" mapstructure:"exclude_schools"`
	ExcludeCurrentJobTitles  []string `json:"excludeCurrentJobTitles,omitempty" mapstructure:"exclude_current_job_titles"`
	ExcludePastJobTitles     []string `json:"excludePastJobTitles,omitempty" mapstructure:"exclude_past_job_titles"`
	ExcludeIndustryIDs       []string `json:"excludeIndustryIds,omitempty" mapstructure:"exclude_industry_ids"`
	ExcludeSeniorityLevelIDs []string `json:"excludeSeniorityLevelIds,omitempty" mapstructure:"exclude_seniority_level_ids"`
	ExcludeFunctionIDs       []string `json:"excludeFunctionIds,omitempty" mapstructure:"exclude_function_ids"`

	RecentlyChangedJobs bool   `json:"recentlyChangedJobs,omitempty" mapstructure:"recently_changed_jobs"`
	SalesNavURL         string `json:"salesNavUrl,omitempty" mapstructure:"sales_nav_url"`
}

// cleanValue collapses commas and whitespace runs into single spaces.
func cleanValue(v string) string {
	v = strings.ReplaceAll(v, ",", " ")
	return strings.Join(strings.Fields(v), " ")
}

func cleanList(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if c := cleanValue(v); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Normalize returns a copy of q with every field trimmed, commas collapsed
// to spaces, and empty values removed.
func (q Query) Normalize() Query {
	q.Search = strings.Join(strings.Fields(q.Search), " ")
	q.SalesNavURL = strings.TrimSpace(q.SalesNavURL)

	for _, f := range q.listFields() {
		*f = cleanList(*f)
	}
	return q
}

// Empty reports whether no usable filter remains after normalization.
func (q Query) Empty() bool {
	if q.Search != "" || q.SalesNavURL != "" || q.RecentlyChangedJobs {
		return false
	}
	for _, f := range q.listFields() {
		if len(*f) > 0 {
			return false
		}
	}
	return true
}

func (q *Query) listFields() []*[]string {
	return []*[]string{
		&q.CurrentCompanies, &q.PastCompanies, &q.CurrentJobTitles, &q.PastJobTitles,
		&q.FirstNames, &q.LastNames, &q.Schools, &q.Locations, &q.IndustryIDs,
		&q.YearsOfExperienceIDs, &q.YearsAtCurrentCompanyIDs, &q.SeniorityLevelIDs,
		&q.FunctionIDs, &q.ProfileLanguages,
		&q.ExcludeCurrentCompanies, &q.ExcludePastCompanies, &q.ExcludeLocations,
		&q.ExcludeGeoIDs, &q.ExcludeSchools, &q.ExcludeCurrentJobTitles,
		&q.ExcludePastJobTitles, &q.ExcludeIndustryIDs, &q.ExcludeSeniorityLevelIDs,
		&q.ExcludeFunctionIDs,
	}
}
