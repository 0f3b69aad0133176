package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/kuitang/movie-e2e/internal/errs"
)

// Locators for the movie home page.
const (
	CategoryLinks     = "xpath=//nav//ul/li/a"
	MovieTitles       = "xpath=//div[contains(@class,'flex flex-col items-center')]/p[1]"
	MovieMeta         = "xpath=//div[contains(@class,'flex flex-col items-center')]/p[2]"
	MovieCardText     = "xpath=//div[contains(@class,'flex flex-col items-center')]//p"
	TypeDropdown      = "xpath=(//p[text()='Type']/following::div[contains(@class,'css-yk16xz-control')])[1]"
	SelectedType      = "xpath=//div[contains(@class,'css-1uccc91-singleValue')]"
	GenreDropdown     = "xpath=(//p[text()='Genre']/following::div[contains(@class,'css-yk16xz-control')])[1]"
	SelectedGenre     = "xpath=//div[contains(@class,'css-12jo7m5')]"
	YearStartDropdown = "xpath=(//div[contains(@class,'css-1hwfws3')])[3]"
	YearEndDropdown   = "xpath=(//div[contains(@class,'css-1hwfws3')])[4]"
	Pagination        = "#react-paginate"
	NextButton        = "xpath=//li[contains(@class,'next')]/a"
	SelectedPage      = "xpath=//li[@class='selected']/a"
)

// selectedPageWait bounds pagination lookups independently of the explicit wait.
const selectedPageWait = 5 * time.Second

func categoryLink(name string) string {
	return xpath("//nav//ul/li/a[text()=%s]", literal(name))
}

func dropdownOption(text string) string {
	return xpath("//div[contains(@class,'-option') and text()=%s]", literal(text))
}

func ratingStar(stars int, predicate string) string {
	return xpath("(//ul[contains(@class,'rc-rate')]//div[@role='radio' and @aria-posinset='%d']%s)", stars, predicate)
}

func pageLink(n int) string {
	return xpath("//li/a[text()='%d']", n)
}

func lastPageLinks(n int) string {
	return xpath("(//ul/li[not(contains(@class,'next')) and not(contains(@class,'previous')) and not(contains(@class,'break'))]/a)[position() > last()-%d]", n)
}

// literal quotes s as an XPath string literal.
func literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// HomePage is the movie listing page with its filters and pagination.
type HomePage struct {
	BasePage
	baseURL string
}

// NewHomePage wraps page. baseURL is the application origin used by Open.
func NewHomePage(page playwright.Page, baseURL string, wait time.Duration, log *zap.Logger) *HomePage {
	return &HomePage{
		BasePage: NewBasePage(page, wait, log),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Open navigates to a path under the base URL, e.g. "popular".
func (h *HomePage) Open(path string) error {
	url := h.baseURL + "/" + strings.TrimLeft(path, "/")
	h.log.Info("opening page", zap.String("url", url))
	if _, err := h.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(h.wait),
	}); err != nil {
		h.log.Error("open failed", zap.String("url", url), zap.Error(err))
		return classify(err, "open "+url)
	}
	return nil
}

// Refresh reloads the current page.
func (h *HomePage) Refresh() error {
	if _, err := h.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   ms(h.wait),
	}); err != nil {
		h.log.Error("refresh failed", zap.Error(err))
		return classify(err, "refresh")
	}
	h.log.Info("page refreshed", zap.String("url", h.CurrentURL()))
	return nil
}

// SelectCategory clicks the navigation link named name.
func (h *HomePage) SelectCategory(name string) error {
	h.log.Info("selecting category", zap.String("category", name))
	if _, err := h.present(CategoryLinks); err != nil {
		h.log.Error("category links missing", zap.Error(err))
		return err
	}
	if err := h.click(categoryLink(name)); err != nil {
		h.log.Error("error selecting category", zap.String("category", name), zap.Error(err))
		return err
	}
	h.log.Info("clicked category", zap.String("category", name))
	return nil
}

// WaitForTitles waits until at least one movie title is visible.
func (h *HomePage) WaitForTitles() error {
	_, err := h.visible(MovieTitles)
	return err
}

// WaitForMovieCards waits until any text inside a movie card is attached.
func (h *HomePage) WaitForMovieCards() error {
	_, err := h.present(MovieCardText)
	return err
}

// GetAllTitles returns the non-empty movie titles on the page.
func (h *HomePage) GetAllTitles() ([]string, error) {
	if _, err := h.present(MovieTitles); err != nil {
		h.log.Error("error getting titles", zap.Error(err))
		return nil, err
	}
	texts, err := h.page.Locator(MovieTitles).AllInnerTexts()
	if err != nil {
		return nil, classify(err, "read titles")
	}
	titles := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	h.log.Info("found movie titles", zap.Int("count", len(titles)), zap.Strings("first", head(titles, 5)))
	return titles, nil
}

// SelectType picks a value from the Type dropdown.
func (h *HomePage) SelectType(name string) error {
	if err := h.click(TypeDropdown); err != nil {
		h.log.Error("error opening type dropdown", zap.Error(err))
		return err
	}
	if err := h.click(dropdownOption(name)); err != nil {
		h.log.Error("error selecting type", zap.String("type", name), zap.Error(err))
		return err
	}
	h.log.Info("selected type", zap.String("type", name))
	return nil
}

// WaitForSelectedType waits until the Type dropdown shows name.
func (h *HomePage) WaitForSelectedType(name string) error {
	loc := h.page.Locator(SelectedType).Filter(playwright.LocatorFilterOptions{HasText: name}).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible, Timeout: ms(h.wait)}); err != nil {
		return classify(err, "wait for selected type "+name)
	}
	return nil
}

// GetSelectedType returns the value shown in the Type dropdown.
func (h *HomePage) GetSelectedType() (string, error) {
	text, err := h.text(SelectedType)
	if err != nil {
		h.log.Error("error getting selected type", zap.Error(err))
		return "", err
	}
	h.log.Info("currently selected type", zap.String("type", text))
	return strings.TrimSpace(text), nil
}

// SelectYearRange picks start and end from the two year dropdowns.
func (h *HomePage) SelectYearRange(start, end int) error {
	steps := []string{
		YearStartDropdown,
		dropdownOption(strconv.Itoa(start)),
		YearEndDropdown,
		dropdownOption(strconv.Itoa(end)),
	}
	for _, sel := range steps {
		if err := h.click(sel); err != nil {
			h.log.Error("error selecting year range", zap.Int("start", start), zap.Int("end", end), zap.Error(err))
			return err
		}
	}
	h.log.Info("year range selected", zap.Int("start", start), zap.Int("end", end))
	return nil
}

// GetSelectedStartYear returns the year shown in the start dropdown.
func (h *HomePage) GetSelectedStartYear() (int, error) {
	return h.year(YearStartDropdown, "start")
}

// GetSelectedEndYear returns the year shown in the end dropdown.
func (h *HomePage) GetSelectedEndYear() (int, error) {
	return h.year(YearEndDropdown, "end")
}

func (h *HomePage) year(selector, which string) (int, error) {
	text, err := h.text(selector)
	if err != nil {
		h.log.Error("error getting selected year", zap.String("which", which), zap.Error(err))
		return 0, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errs.Wrap(errs.Assertion, fmt.Sprintf("%s year %q is not a number", which, text), err)
	}
	h.log.Info("selected year", zap.String("which", which), zap.Int("year", year))
	return year, nil
}

// GetDisplayedYears extracts the year from each movie's "Genre, Year" line.
func (h *HomePage) GetDisplayedYears() ([]string, error) {
	meta, err := h.page.Locator(MovieMeta).AllInnerTexts()
	if err != nil {
		return nil, classify(err, "read movie meta")
	}
	var years []string
	for _, m := range meta {
		if !strings.Contains(m, ",") {
			continue
		}
		parts := strings.Split(m, ",")
		years = append(years, strings.TrimSpace(parts[len(parts)-1]))
	}
	h.log.Info("extracted years", zap.Strings("first", head(years, 5)))
	return years, nil
}

// SelectGenre adds name in the Genre dropdown.
func (h *HomePage) SelectGenre(name string) error {
	if err := h.click(GenreDropdown); err != nil {
		h.log.Error("error opening genre dropdown", zap.Error(err))
		return err
	}
	if err := h.click(dropdownOption(name)); err != nil {
		h.log.Error("error selecting genre", zap.String("genre", name), zap.Error(err))
		return err
	}
	h.log.Info("selected genre", zap.String("genre", name))
	return nil
}

// GetSelectedGenre returns the first genre chip shown in the Genre dropdown.
func (h *HomePage) GetSelectedGenre() (string, error) {
	text, err := h.text(SelectedGenre)
	if err != nil {
		h.log.Error("error getting selected genre", zap.Error(err))
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GetDisplayedGenres extracts the genre from each movie's "Genre, Year" line.
func (h *HomePage) GetDisplayedGenres() ([]string, error) {
	meta, err := h.page.Locator(MovieMeta).AllInnerTexts()
	if err != nil {
		return nil, classify(err, "read movie meta")
	}
	var genres []string
	for _, m := range meta {
		if strings.TrimSpace(m) == "" {
			continue
		}
		genres = append(genres, strings.TrimSpace(strings.Split(m, ",")[0]))
	}
	h.log.Info("extracted genres", zap.Strings("first", head(genres, 5)))
	return genres, nil
}

// SelectRating clicks the star at position stars.
func (h *HomePage) SelectRating(stars int) error {
	star, err := h.present(ratingStar(stars, ""))
	if err != nil {
		h.log.Error("error selecting rating", zap.Int("stars", stars), zap.Error(err))
		return err
	}
	if err := star.Click(playwright.LocatorClickOptions{Timeout: ms(h.wait)}); err != nil {
		h.log.Error("error selecting rating", zap.Int("stars", stars), zap.Error(err))
		return classify(err, fmt.Sprintf("click %d-star rating", stars))
	}
	h.log.Info("selected rating", zap.Int("stars", stars))
	return nil
}

// IsRatingSelected waits for the star to carry aria-checked and reports
// whether it is "true".
func (h *HomePage) IsRatingSelected(stars int) (bool, error) {
	star, err := h.present(ratingStar(stars, "[@aria-checked]"))
	if err != nil {
		return false, err
	}
	checked, err := star.GetAttribute("aria-checked")
	if err != nil {
		return false, classify(err, "read aria-checked")
	}
	return checked == "true", nil
}

// WaitForPagination waits until the paginator is attached.
func (h *HomePage) WaitForPagination() error {
	if _, err := h.present(Pagination); err != nil {
		h.log.Error("error waiting for pagination", zap.Error(err))
		return err
	}
	h.log.Info("pagination is visible")
	return nil
}

// ClickNextPage clicks the paginator's next button.
func (h *HomePage) ClickNextPage() error {
	if err := h.click(NextButton); err != nil {
		h.log.Error("error clicking next page button", zap.Error(err))
		return err
	}
	h.log.Info("clicked next page button")
	return nil
}

// GetSelectedPageNumber returns the label of the selected page.
func (h *HomePage) GetSelectedPageNumber() (string, error) {
	loc, err := h.waitFor(SelectedPage, playwright.WaitForSelectorStateAttached, selectedPageWait)
	if err != nil {
		h.log.Error("error getting selected page number", zap.Error(err))
		return "", err
	}
	text, err := loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: ms(selectedPageWait)})
	if err != nil {
		return "", classify(err, "read selected page")
	}
	page := strings.TrimSpace(text)
	h.log.Info("currently selected page", zap.String("page", page))
	return page, nil
}

// SelectPage clicks the link for page n.
func (h *HomePage) SelectPage(n int) error {
	if err := h.clickWithin(pageLink(n), selectedPageWait); err != nil {
		h.log.Error("error selecting page", zap.Int("page", n), zap.Error(err))
		return err
	}
	h.log.Info("selected page", zap.Int("page", n))
	return nil
}

// LastPageNumbers returns the last n numbered links in the paginator.
func (h *HomePage) LastPageNumbers(n int) ([]int, error) {
	texts, err := h.page.Locator(lastPageLinks(n)).AllInnerTexts()
	if err != nil {
		return nil, classify(err, "read page links")
	}
	pages := make([]int, 0, len(texts))
	for _, t := range texts {
		p, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, errs.Wrap(errs.ElementNotFound, fmt.Sprintf("page link %q is not a number", t), err)
		}
		pages = append(pages, p)
	}
	h.log.Info("last pages detected", zap.Ints("pages", pages))
	return pages, nil
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
