// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package efb

// suggestionLimit caps the similar-code hints returned for a negative check.
const suggestionLimit = 10

// CheckResult is the answer to "is this AVV permitted at this Standort",
// together with the descriptive fields the caller renders next to it.
type CheckResult struct {
	Permitted  bool   `json:"permitted"`
	Code       string `json:"code"`
	Text       string `json:"text,omitempty"`
	SiteID     int    `json:"site_id"`
	SiteLabel  string `json:"site_label"`
	Address    string `json:"address"`
	Taetigkeit string `json:"taetigkeit,omitempty"`

	// Suggestions lists permitted codes of the same AVV group or chapter.
	// Only filled for negative results.
	Suggestions []*WasteCode `json:"suggestions,omitempty"`
}

// Checker answers AVV membership questions against a site repository. It is
// a pure read path: repeated calls against an unmodified store return the
// same result.
type Checker struct {
	repo SiteRepository
}

// NewChecker creates a checker over the given repository.
func NewChecker(repo SiteRepository) *Checker {
	return &Checker{repo: repo}
}

// Check normalizes rawCode and reports whether it is listed in the EfB
// certificate for the site. Unknown codes are a negative answer, not an
// error; an unknown site is ErrSiteNotFound and garbage input is
// ErrInvalidCode.
func (c *Checker) Check(siteID int, rawCode string) (*CheckResult, error) {
	code, err := NormalizeAVV(rawCode)
	if err != nil {
		return nil, err
	}

	site, err := c.repo.GetSite(siteID)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		Code:       code,
		SiteID:     site.ID,
		SiteLabel:  site.Label(),
		Address:    site.FullAddress(),
		Taetigkeit: site.Taetigkeit,
	}

	match, err := c.repo.FindCode(siteID, code)
	if err != nil {
		return nil, err
	}

	if match != nil {
		result.Permitted = true
		result.Text = match.Text

		return result, nil
	}

	codes, err := c.repo.ListCodes(siteID)
	if err != nil {
		return nil, err
	}

	result.Suggestions = SuggestSimilar(codes, code, suggestionLimit)

	return result, nil
}
