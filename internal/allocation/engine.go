package allocation

import (
	"cmp"
	"slices"
	"time"

	"github.com/charityfund/backend/internal/models"
)

// Transfer moves Amount from a donation into a project.
type Transfer struct {
	DonationID int64 `json:"donation_id"`
	ProjectID  int64 `json:"project_id"`
	Amount     int64 `json:"amount"`
}

// Result is the outcome of one sweep. Donations and Projects hold every entity
// the sweep mutated, in the order they were first touched.
type Result struct {
	SweepID   string                   `json:"sweep_id,omitempty"`
	Transfers []Transfer               `json:"transfers"`
	Donations []*models.Donation       `json:"-"`
	Projects  []*models.CharityProject `json:"-"`
	ClosedAt  time.Time                `json:"swept_at"`
}

// Empty reports whether the sweep changed nothing.
func (r *Result) Empty() bool {
	return r == nil || (len(r.Donations) == 0 && len(r.Projects) == 0)
}

// Total is the sum of all transferred amounts.
func (r *Result) Total() int64 {
	if r == nil {
		return 0
	}
	var total int64
	for _, t := range r.Transfers {
		total += t.Amount
	}
	return total
}

// ClosedDonations counts donations that became fully invested in this sweep.
func (r *Result) ClosedDonations() int {
	n := 0
	for _, d := range r.Donations {
		if d.FullyInvested {
			n++
		}
	}
	return n
}

// ClosedProjects counts projects that became fully invested in this sweep.
func (r *Result) ClosedProjects() int {
	n := 0
	for _, p := range r.Projects {
		if p.FullyInvested {
			n++
		}
	}
	return n
}

// Allocate runs one sweep over the given snapshot, mutating the entities in
// place. Both sides are processed oldest first; entities already fully
// invested are skipped. Every closing in this sweep is stamped with at.
func Allocate(donations []*models.Donation, projects []*models.CharityProject, at time.Time) *Result {
	donations = byCreation(donations, func(d *models.Donation) (time.Time, int64) { return d.CreateDate, d.ID })
	projects = byCreation(projects, func(p *models.CharityProject) (time.Time, int64) { return p.CreateDate, p.ID })

	res := &Result{ClosedAt: at}
	cursor := 0

	for _, project := range projects {
		if cursor == len(donations) {
			break
		}
		if project.FullyInvested {
			continue
		}

		for !project.FullyInvested && cursor < len(donations) {
			donation := donations[cursor]
			if donation.FullyInvested {
				cursor++
				continue
			}

			amount := min(project.Remaining(), donation.Remaining())
			project.Invest(amount, at)
			donation.Invest(amount, at)

			if amount > 0 {
				res.Transfers = append(res.Transfers, Transfer{
					DonationID: donation.ID,
					ProjectID:  project.ID,
					Amount:     amount,
				})
			}
			res.touchDonation(donation)
			res.touchProject(project)

			if donation.FullyInvested {
				cursor++
			}
		}
	}

	return res
}

func (r *Result) touchDonation(d *models.Donation) {
	if n := len(r.Donations); n == 0 || r.Donations[n-1] != d {
		r.Donations = append(r.Donations, d)
	}
}

func (r *Result) touchProject(p *models.CharityProject) {
	if n := len(r.Projects); n == 0 || r.Projects[n-1] != p {
		r.Projects = append(r.Projects, p)
	}
}

// byCreation returns a copy of items ordered by creation date, ties broken by id.
func byCreation[T any](items []T, key func(T) (time.Time, int64)) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		ta, ia := key(a)
		tb, ib := key(b)
		if c := ta.Compare(tb); c != 0 {
			return c
		}
		return cmp.Compare(ia, ib)
	})
	return sorted
}
