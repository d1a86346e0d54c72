package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookworm/library-api/internal/domain"
	"github.com/bookworm/library-api/internal/fine"
	"github.com/bookworm/library-api/internal/service"
	"github.com/bookworm/library-api/internal/store"
)

// fakeDB holds the in-memory state shared by the fake stores. Every store
// method takes mu, so the stores are safe to use from concurrent goroutines.
type fakeDB struct {
	mu        sync.Mutex
	titles    map[uuid.UUID]*domain.Title
	borrowers map[uuid.UUID]*domain.Borrower
	loans     map[uuid.UUID]*domain.Loan
	loanOrder []uuid.UUID
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		titles:    make(map[uuid.UUID]*domain.Title),
		borrowers: make(map[uuid.UUID]*domain.Borrower),
		loans:     make(map[uuid.UUID]*domain.Loan),
	}
}

func (db *fakeDB) addTitle(t *domain.Title) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *t
	db.titles[t.ID] = &cp
}

func (db *fakeDB) addBorrower(b *domain.Borrower) {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := *b
	db.borrowers[b.ID] = &cp
}

func (db *fakeDB) availableCopies(t *testing.T, id uuid.UUID) int {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	title, ok := db.titles[id]
	require.True(t, ok, "title %s not found in fake store", id)
	return title.AvailableCopies
}

func (db *fakeDB) snapshot() ([]domain.Title, []domain.Loan, []uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	titles := make([]domain.Title, 0, len(db.titles))
	for _, t := range db.titles {
		titles = append(titles, *t)
	}
	loans := make([]domain.Loan, 0, len(db.loans))
	for _, l := range db.loans {
		loans = append(loans, *l)
	}
	order := append([]uuid.UUID(nil), db.loanOrder...)
	return titles, loans, order
}

func (db *fakeDB) restore(titles []domain.Title, loans []domain.Loan, order []uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.titles = make(map[uuid.UUID]*domain.Title, len(titles))
	for i := range titles {
		db.titles[titles[i].ID] = &titles[i]
	}
	db.loans = make(map[uuid.UUID]*domain.Loan, len(loans))
	for i := range loans {
		db.loans[loans[i].ID] = &loans[i]
	}
	db.loanOrder = order
}

// fakeTransactor serializes transactions and restores the pre-transaction
// state when the function fails, mirroring commit-or-rollback semantics.
type fakeTransactor struct {
	db   *fakeDB
	txMu sync.Mutex
}

func (f *fakeTransactor) Transact(ctx context.Context, fn store.TxFn) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	titles, loans, order := f.db.snapshot()
	if err := fn(ctx, nil); err != nil {
		f.db.restore(titles, loans, order)
		return err
	}
	return nil
}

type fakeTitleStore struct{ db *fakeDB }

func (s *fakeTitleStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Title, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	title, ok := s.db.titles[id]
	if !ok {
		return nil, store.ErrTitleNotFound
	}
	cp := *title
	return &cp, nil
}

func (s *fakeTitleStore) AdjustAvailable(_ context.Context, id uuid.UUID, delta int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	title, ok := s.db.titles[id]
	if !ok {
		return store.ErrTitleNotFound
	}
	next := title.AvailableCopies + delta
	if next < 0 {
		return store.ErrNoAvailableCopies
	}
	if next > title.TotalCopies {
		return store.ErrCopiesExceedTotal
	}
	title.AvailableCopies = next
	return nil
}

func (s *fakeTitleStore) WithTx(_ *sql.Tx) store.TitleStore { return s }

type fakeBorrowerStore struct{ db *fakeDB }

func (s *fakeBorrowerStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Borrower, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.borrowers[id]
	if !ok {
		return nil, store.ErrBorrowerNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBorrowerStore) GetByEmail(_ context.Context, email string) (*domain.Borrower, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, b := range s.db.borrowers {
		if b.Email == email {
			cp := *b
			return &cp, nil
		}
	}
	return nil, store.ErrBorrowerNotFound
}

func (s *fakeBorrowerStore) WithTx(_ *sql.Tx) store.BorrowerStore { return s }

type fakeLoanStore struct{ db *fakeDB }

func (s *fakeLoanStore) Create(_ context.Context, loan *domain.Loan) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.loans {
		if existing.BorrowerID == loan.BorrowerID &&
			existing.TitleID == loan.TitleID &&
			existing.ReturnDate == nil {
			return store.ErrActiveLoanExists
		}
	}
	cp := *loan
	s.db.loans[loan.ID] = &cp
	s.db.loanOrder = append(s.db.loanOrder, loan.ID)
	return nil
}

func (s *fakeLoanStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	loan, ok := s.db.loans[id]
	if !ok {
		return nil, store.ErrLoanNotFound
	}
	cp := *loan
	return &cp, nil
}

func (s *fakeLoanStore) FinalizeReturn(
	_ context.Context,
	id uuid.UUID,
	returnDate time.Time,
	fineAmount float64,
) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	loan, ok := s.db.loans[id]
	if !ok {
		return store.ErrLoanNotFound
	}
	if loan.ReturnDate != nil {
		return store.ErrLoanAlreadyReturned
	}
	rd := returnDate
	loan.ReturnDate = &rd
	loan.Fine = fineAmount
	loan.UpdatedAt = returnDate
	return nil
}

func (s *fakeLoanStore) ListActiveByBorrower(
	_ context.Context,
	borrowerID uuid.UUID,
) ([]*domain.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var result []*domain.Loan
	for i := len(s.db.loanOrder) - 1; i >= 0; i-- {
		loan := s.db.loans[s.db.loanOrder[i]]
		if loan.BorrowerID == borrowerID && loan.ReturnDate == nil {
			cp := *loan
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *fakeLoanStore) ListAll(_ context.Context) ([]*domain.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	result := make([]*domain.Loan, 0, len(s.db.loanOrder))
	for i := len(s.db.loanOrder) - 1; i >= 0; i-- {
		cp := *s.db.loans[s.db.loanOrder[i]]
		result = append(result, &cp)
	}
	return result, nil
}

func (s *fakeLoanStore) FindOverdue(_ context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var result []*domain.Loan
	for _, id := range s.db.loanOrder {
		loan := s.db.loans[id]
		if loan.ReturnDate == nil && !loan.Notified && loan.DueDate.Before(cutoff) {
			cp := *loan
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *fakeLoanStore) MarkNotified(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	loan, ok := s.db.loans[id]
	if !ok {
		return store.ErrLoanNotFound
	}
	loan.Notified = true
	return nil
}

func (s *fakeLoanStore) WithTx(_ *sql.Tx) store.LoanStore { return s }

// testClock is a settable clock for driving due dates and fines.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testLoanPeriod = 7 * 24 * time.Hour

func newTestService(t *testing.T, db *fakeDB, clock *testClock) service.CirculationService {
	t.Helper()
	svc, err := service.NewCirculationService(
		&fakeTransactor{db: db},
		&fakeTitleStore{db: db},
		&fakeBorrowerStore{db: db},
		&fakeLoanStore{db: db},
		fine.NewCalculator(fine.DefaultUnit, fine.DefaultRate),
		testLoanPeriod,
		clock.Now,
		nil,
	)
	require.NoError(t, err)
	return svc
}

func newTestBorrower(verified bool) *domain.Borrower {
	now := time.Now().UTC()
	return &domain.Borrower{
		ID:        uuid.New(),
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Role:      domain.RoleUser,
		Verified:  verified,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestTitle(t *testing.T, available, total int) *domain.Title {
	t.Helper()
	title, err := domain.NewTitle("The Computer and the Brain", "John von Neumann", 24.95, total)
	require.NoError(t, err)
	title.AvailableCopies = available
	return title
}

func TestNewCirculationService_NilDependencies(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	calc := fine.NewCalculator(fine.DefaultUnit, fine.DefaultRate)

	_, err := service.NewCirculationService(
		nil, &fakeTitleStore{db: db}, &fakeBorrowerStore{db: db}, &fakeLoanStore{db: db},
		calc, testLoanPeriod, nil, nil)
	assert.Error(t, err, "nil transactor should be rejected")

	_, err = service.NewCirculationService(
		&fakeTransactor{db: db}, nil, &fakeBorrowerStore{db: db}, &fakeLoanStore{db: db},
		calc, testLoanPeriod, nil, nil)
	assert.Error(t, err, "nil title store should be rejected")

	_, err = service.NewCirculationService(
		&fakeTransactor{db: db}, &fakeTitleStore{db: db}, &fakeBorrowerStore{db: db}, &fakeLoanStore{db: db},
		calc, 0, nil, nil)
	assert.Error(t, err, "non-positive loan period should be rejected")
}

func TestBorrow_CreatesLoanAndTakesCopy(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 2, 3)
	db.addBorrower(borrower)
	db.addTitle(title)

	loan, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)
	require.NotNil(t, loan)

	assert.Equal(t, borrower.ID, loan.BorrowerID)
	assert.Equal(t, borrower.Name, loan.BorrowerName)
	assert.Equal(t, borrower.Email, loan.BorrowerEmail)
	assert.Equal(t, title.ID, loan.TitleID)
	assert.Equal(t, title.Name, loan.TitleName)
	assert.Equal(t, title.Price, loan.Price)
	assert.Equal(t, clock.Now(), loan.BorrowDate)
	assert.Equal(t, clock.Now().Add(testLoanPeriod), loan.DueDate)
	assert.Nil(t, loan.ReturnDate)
	assert.False(t, loan.Notified)

	assert.Equal(t, 1, db.availableCopies(t, title.ID), "borrow should take one copy")
}

func TestBorrow_BorrowerNotFound(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	title := newTestTitle(t, 1, 1)
	db.addTitle(title)

	_, err := svc.Borrow(context.Background(), title.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrBorrowerNotFound)
	assert.Equal(t, 1, db.availableCopies(t, title.ID))
}

func TestBorrow_TitleNotFound(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	db.addBorrower(borrower)

	_, err := svc.Borrow(context.Background(), uuid.New(), borrower.ID)
	assert.ErrorIs(t, err, service.ErrTitleNotFound)
}

func TestBorrow_UnverifiedBorrower(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(false)
	title := newTestTitle(t, 1, 1)
	db.addBorrower(borrower)
	db.addTitle(title)

	_, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrBorrowerUnverified)
	assert.Equal(t, 1, db.availableCopies(t, title.ID), "refused borrow must not touch inventory")
}

func TestBorrow_OutOfStock(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 0, 2)
	db.addBorrower(borrower)
	db.addTitle(title)

	_, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrOutOfStock)
	assert.Equal(t, 0, db.availableCopies(t, title.ID))
}

func TestBorrow_SecondActiveLoanSameTitle(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 3, 3)
	db.addBorrower(borrower)
	db.addTitle(title)

	_, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), title.ID, borrower.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyBorrowed)

	// The failed borrow's decrement rolls back with the transaction.
	assert.Equal(t, 2, db.availableCopies(t, title.ID))
}

func TestBorrowAfterReturn_SameTitleAllowed(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 1, 1)
	db.addBorrower(borrower)
	db.addTitle(title)

	loan, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	// Uniqueness only binds active loans; the same pair may borrow again.
	_, err = svc.Borrow(context.Background(), title.ID, borrower.ID)
	assert.NoError(t, err)
}

func TestReturn_OnTimeHasNoFine(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 1, 1)
	db.addBorrower(borrower)
	db.addTitle(title)

	loan, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, db.availableCopies(t, title.ID))

	clock.Advance(3 * 24 * time.Hour)

	owed, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Zero(t, owed)
	assert.Equal(t, 1, db.availableCopies(t, title.ID), "return should put the copy back")

	stored, err := (&fakeLoanStore{db: db}).GetByID(context.Background(), loan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReturnDate)
	assert.Equal(t, clock.Now(), *stored.ReturnDate)
	assert.Zero(t, stored.Fine)
}

func TestReturn_LateAccruesFinePerDay(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 1, 1)
	db.addBorrower(borrower)
	db.addTitle(title)

	loan, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)

	// Two days and one minute past due rounds up to three chargeable days.
	clock.Advance(testLoanPeriod + 2*24*time.Hour + time.Minute)

	owed, err := svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.30, owed, 1e-9)

	stored, err := (&fakeLoanStore{db: db}).GetByID(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.30, stored.Fine, 1e-9)
}

func TestReturn_LoanNotFound(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	_, err := svc.Return(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrLoanNotFound)
}

func TestReturn_AlreadyReturned(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 1, 1)
	db.addBorrower(borrower)
	db.addTitle(title)

	loan, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), loan.ID)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), loan.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyReturned)
	assert.Equal(t, 1, db.availableCopies(t, title.ID), "second return must not move the counter")
}

func TestConcurrentBorrow_LastCopyHasOneWinner(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	title := newTestTitle(t, 1, 5)
	db.addTitle(title)

	first := newTestBorrower(true)
	second := newTestBorrower(true)
	second.Email = "grace@example.com"
	db.addBorrower(first)
	db.addBorrower(second)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(borrowerID uuid.UUID) {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), title.ID, borrowerID)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var successes, outOfStock int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, service.ErrOutOfStock):
			outOfStock++
		}
	}
	assert.Equal(t, 1, successes, "exactly one borrower gets the last copy")
	assert.Equal(t, 1, outOfStock, "the other borrower is refused")
	assert.Equal(t, 0, db.availableCopies(t, title.ID))
}

func TestConcurrentReturn_DoubleReturnHasOneWinner(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Now().UTC()}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	title := newTestTitle(t, 1, 1)
	db.addBorrower(borrower)
	db.addTitle(title)

	loan, err := svc.Borrow(context.Background(), title.ID, borrower.ID)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Return(context.Background(), loan.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, alreadyReturned int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, service.ErrAlreadyReturned):
			alreadyReturned++
		}
	}
	assert.Equal(t, 1, successes, "exactly one return finalizes the loan")
	assert.Equal(t, 1, alreadyReturned)
	assert.Equal(t, 1, db.availableCopies(t, title.ID), "the copy comes back exactly once")
}

func TestListActiveLoans_OnlyActiveForBorrower(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, db, clock)

	borrower := newTestBorrower(true)
	other := newTestBorrower(true)
	other.Email = "grace@example.com"
	db.addBorrower(borrower)
	db.addBorrower(other)

	first := newTestTitle(t, 1, 1)
	second := newTestTitle(t, 1, 1)
	third := newTestTitle(t, 1, 1)
	db.addTitle(first)
	db.addTitle(second)
	db.addTitle(third)

	returned, err := svc.Borrow(context.Background(), first.ID, borrower.ID)
	require.NoError(t, err)
	_, err = svc.Return(context.Background(), returned.ID)
	require.NoError(t, err)

	active, err := svc.Borrow(context.Background(), second.ID, borrower.ID)
	require.NoError(t, err)
	_, err = svc.Borrow(context.Background(), third.ID, other.ID)
	require.NoError(t, err)

	loans, err := svc.ListActiveLoans(context.Background(), borrower.ID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, active.ID, loans[0].ID)

	all, err := svc.ListAllLoans(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3, "the ledger keeps returned loans")
}
