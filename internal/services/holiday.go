package services

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/us"
)

// Calendar codes with special handling.
const (
	CalendarChina        = "CN"
	CalendarWeekendsOnly = "NONE"
)

// HolidayService decides whether reps are expected to report on a day.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{calendars: make(map[string]*cal.BusinessCalendar)}
	for _, c := range supportedCalendars {
		if len(c.holidays) > 0 {
			s.calendars[c.Code] = newBusinessCalendar(c.Name, c.holidays...)
		}
	}
	return s
}

func newBusinessCalendar(name string, holidays ...*cal.Holiday) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.Name = name
	c.AddHoliday(holidays...)
	return c
}

// IsWorkday treats unknown codes like NONE: weekdays are workdays.
func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	code := strings.ToUpper(countryCode)
	if code == CalendarChina {
		return isWorkdayChina(t)
	}

	c, ok := s.calendars[code]
	if !ok {
		return !cal.IsWeekend(t)
	}
	return c.IsWorkday(t)
}

// China moves working days onto weekends around its long holidays, which
// the lunar-go tables record explicitly.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	if holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

func (s *HolidayService) IsSupported(countryCode string) bool {
	code := strings.ToUpper(countryCode)
	for _, c := range supportedCalendars {
		if c.Code == code {
			return true
		}
	}
	return false
}

func (s *HolidayService) SupportedCountries() []CountryInfo {
	out := make([]CountryInfo, 0, len(supportedCalendars))
	for _, c := range supportedCalendars {
		out = append(out, CountryInfo{Code: c.Code, Name: c.Name})
	}
	return out
}

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedCalendars = []struct {
	CountryInfo
	holidays []*cal.Holiday
}{
	{CountryInfo{"BR", "Brasil"}, br.Holidays},
	{CountryInfo{"PT", "Portugal"}, pt.Holidays},
	{CountryInfo{"US", "Estados Unidos"}, us.Holidays},
	{CountryInfo{"CA", "Canadá"}, ca.Holidays},
	{CountryInfo{"GB", "Reino Unido"}, gb.Holidays},
	{CountryInfo{"ES", "Espanha"}, es.Holidays},
	{CountryInfo{"FR", "França"}, fr.Holidays},
	{CountryInfo{"DE", "Alemanha"}, de.Holidays},
	{CountryInfo{"IT", "Itália"}, it.Holidays},
	{CountryInfo{CalendarChina, "China"}, nil},
	{CountryInfo{CalendarWeekendsOnly, "Somente dias úteis (seg-sex)"}, nil},
}
