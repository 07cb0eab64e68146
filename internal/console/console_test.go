package console

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/terra-clan/quiz-console/internal/journal"
	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
	"github.com/terra-clan/quiz-console/internal/question"
)

func newTestConsole(t *testing.T, g *fakeGateway, opts ...Option) *Console {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(g, append([]Option{WithLogger(logger)}, opts...)...)
}

func topicInput(level string) TopicInput {
	return TopicInput{
		Name:    "Greetings",
		LevelID: level,
		Image:   &Upload{Filename: "topic.png", ContentType: "image/png", Data: []byte{1}},
	}
}

func withLevels(t *testing.T, c *Console, g *fakeGateway) {
	t.Helper()
	g.levels = []models.Level{{ID: "l1", Name: "A1", Order: 1}, {ID: "l2", Name: "A2", Order: 2}}
	if err := c.FetchLevels(context.Background()); err != nil {
		t.Fatalf("FetchLevels failed: %v", err)
	}
}

func TestAddAppearsOnceThenDeleteRemoves(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)
	ctx := context.Background()

	withLevels(t, c, g)
	c.Search(Levels, "b")

	lvl, err := c.AddLevel(ctx, models.LevelInput{Name: "B1", Order: 3})
	if err != nil {
		t.Fatalf("AddLevel failed: %v", err)
	}

	countID := func(items []models.Level) int {
		n := 0
		for _, l := range items {
			if l.ID == lvl.ID {
				n++
			}
		}
		return n
	}
	if n := countID(c.Levels.Items()); n != 1 {
		t.Errorf("expected new level once in canonical, got %d", n)
	}
	if n := countID(c.Levels.Projection()); n != 1 {
		t.Errorf("expected new level once in projection, got %d", n)
	}
	if st := c.Levels.State(opstate.KindAdd); st.Status != opstate.StatusSucceeded {
		t.Errorf("expected add succeeded, got %+v", st)
	}

	if err := c.DeleteLevel(ctx, lvl.ID); err != nil {
		t.Fatalf("DeleteLevel failed: %v", err)
	}
	if countID(c.Levels.Items()) != 0 || countID(c.Levels.Projection()) != 0 {
		t.Error("expected deleted level to be gone from both collections")
	}
}

func TestFailedAddLeavesStoreUntouched(t *testing.T) {
	g := newFakeGateway()
	g.failWith("CreatePool", errRemote)
	c := newTestConsole(t, g)

	if _, err := c.AddPool(context.Background(), models.PoolInput{Name: "Verbs"}); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}

	st := c.Pools.State(opstate.KindAdd)
	if st.Status != opstate.StatusFailed || st.Error != errRemote.Error() {
		t.Errorf("expected failed with the remote message, got %+v", st)
	}
	if c.Pools.Len() != 0 {
		t.Errorf("expected no pools, got %d", c.Pools.Len())
	}
}

func TestSameKindNeedsDismiss(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)
	ctx := context.Background()

	if _, err := c.AddPool(ctx, models.PoolInput{Name: "One"}); err != nil {
		t.Fatalf("AddPool failed: %v", err)
	}
	if _, err := c.AddPool(ctx, models.PoolInput{Name: "Two"}); !errors.Is(err, opstate.ErrBusy) {
		t.Fatalf("expected ErrBusy before dismiss, got %v", err)
	}

	if err := c.Dismiss(Pools, opstate.KindAdd); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if _, err := c.AddPool(ctx, models.PoolInput{Name: "Two"}); err != nil {
		t.Fatalf("AddPool after dismiss failed: %v", err)
	}
	if c.Pools.Len() != 2 {
		t.Errorf("expected two pools, got %d", c.Pools.Len())
	}
}

func TestInvalidInputNeverCallsRemote(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)

	if _, err := c.AddLevel(context.Background(), models.LevelInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if g.count("CreateLevel") != 0 {
		t.Error("expected no remote call")
	}
	if st := c.Levels.State(opstate.KindAdd); st.Status != opstate.StatusIdle {
		t.Errorf("expected machine to stay idle, got %s", st.Status)
	}
}

func TestInvalidQuestionNeverCallsRemote(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)

	f := &question.Form{
		Requirement: "Choose",
		Text:        "I ___ here",
		Difficulty:  models.DifficultyEasy,
		Type:        models.TypeSingleSelection,
		Context:     question.Context{PoolID: "p1"},
		SingleSelection: &question.SingleSelectionForm{
			Contents:      [4]string{"am", "is", "", "are"},
			SelectedOrder: "1",
		},
	}

	if _, err := c.AddQuestion(context.Background(), f); !errors.Is(err, question.ErrInvalidForm) {
		t.Fatalf("expected ErrInvalidForm, got %v", err)
	}
	if g.count("CreateQuestion") != 0 {
		t.Error("expected no remote call")
	}
	if st := c.Questions.State(opstate.KindAdd); st.Status != opstate.StatusIdle {
		t.Errorf("expected machine to stay idle, got %s", st.Status)
	}
}

func TestAddQuestionOutsideScopeIsNotInserted(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)
	ctx := context.Background()

	if err := c.FetchQuestions(ctx, QuestionScope{PoolID: "p1"}); err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}

	f := &question.Form{
		Requirement: "Translate",
		Text:        "cat",
		Difficulty:  models.DifficultyEasy,
		Type:        models.TypeTranslate,
		Context:     question.Context{PoolID: "p2"},
		Translate:   &question.TranslateForm{Items: []string{"кот"}},
	}
	if _, err := c.AddQuestion(ctx, f); err != nil {
		t.Fatalf("AddQuestion failed: %v", err)
	}
	if c.Questions.Len() != 0 {
		t.Errorf("expected question of another pool to stay out, got %d", c.Questions.Len())
	}
}

func TestFetchQuestionsScope(t *testing.T) {
	c := newTestConsole(t, newFakeGateway())

	err := c.FetchQuestions(context.Background(), QuestionScope{PoolID: "p", TopicID: "t"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !c.Scope().IsZero() {
		t.Error("expected scope to stay unset")
	}
}

func TestLearnerToggleRefetches(t *testing.T) {
	g := newFakeGateway()
	g.learners = []models.Learner{{ID: "u1", FullName: "Ada Lovelace", Enabled: false}}
	c := newTestConsole(t, g)
	ctx := context.Background()

	if err := c.FetchLearners(ctx); err != nil {
		t.Fatalf("FetchLearners failed: %v", err)
	}

	if err := c.EnableLearner(ctx, "u1"); err != nil {
		t.Fatalf("EnableLearner failed: %v", err)
	}

	if n := g.count("ListLearners"); n != 2 {
		t.Errorf("expected exactly one re-fetch, got %d list calls", n)
	}
	if n := g.count("EnableLearner"); n != 1 {
		t.Errorf("expected one enable call, got %d", n)
	}

	// The server still reports the learner disabled, and the console must
	// not have flipped the flag itself
	l, ok := c.Learners.Get("u1")
	if !ok || l.Enabled {
		t.Errorf("expected learner to reflect the server, got %+v", l)
	}
	if st := c.Learners.State(opstate.KindEnable); st.Status != opstate.StatusSucceeded {
		t.Errorf("expected enable succeeded, got %s", st.Status)
	}
}

func TestLearnerToggleFailureSkipsRefetch(t *testing.T) {
	g := newFakeGateway()
	g.failWith("DisableLearner", errRemote)
	c := newTestConsole(t, g)

	if err := c.DisableLearner(context.Background(), "u1"); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if g.count("ListLearners") != 0 {
		t.Error("expected no re-fetch after a failed toggle")
	}
}

func TestCancelDropsStaleCompletion(t *testing.T) {
	g := newFakeGateway()
	g.levels = []models.Level{{ID: "l1", Name: "A1"}}
	release := g.holdUntil("ListLevels")
	rec := &recorder{}
	c := newTestConsole(t, g, WithNotifier(rec))

	done := make(chan error, 1)
	go func() {
		done <- c.FetchLevels(context.Background())
	}()
	<-g.started

	cancelled, err := c.Cancel(Levels, opstate.KindFetch)
	if err != nil || !cancelled {
		t.Fatalf("expected in-flight fetch to be cancelled, got %v %v", cancelled, err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if c.Levels.Len() != 0 {
		t.Errorf("expected stale result to be dropped, got %d levels", c.Levels.Len())
	}
	if st := c.Levels.State(opstate.KindFetch); st.Status != opstate.StatusIdle {
		t.Errorf("expected idle after cancel, got %s", st.Status)
	}

	got := rec.statuses("levels", "fetch")
	if len(got) != 2 || got[0] != "loading" || got[1] != "idle" {
		t.Errorf("unexpected events %v", got)
	}
}

func TestCreateTopicWithoutLevels(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)

	_, err := c.CreateTopic(context.Background(), topicInput("l1"), nil)
	if !errors.Is(err, ErrLevelsNotLoaded) {
		t.Fatalf("expected ErrLevelsNotLoaded, got %v", err)
	}
	if g.count("CreateTopic") != 0 {
		t.Error("expected no remote call")
	}
}

func TestCreateTopicRejectsUnknownLevel(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)
	withLevels(t, c, g)

	if _, err := c.CreateTopic(context.Background(), topicInput("l9"), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if g.count("CreateTopic") != 0 {
		t.Error("expected no remote call")
	}
}

func TestCreateTopicDefaultsOrder(t *testing.T) {
	g := newFakeGateway()
	g.topicCount = 5
	c := newTestConsole(t, g)
	ctx := context.Background()

	withLevels(t, c, g)
	if err := c.FetchTopics(ctx); err != nil {
		t.Fatalf("FetchTopics failed: %v", err)
	}

	topic, err := c.CreateTopic(ctx, topicInput("l1"), nil)
	if err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}

	form := g.topicForms[0]
	if v, _ := form.Value("order"); v != "6" {
		t.Errorf("expected order 6, got %q", v)
	}
	if v, _ := form.Value("isRemoved"); v != "false" {
		t.Errorf("expected isRemoved false, got %q", v)
	}
	if !form.HasFile(TopicImageField) {
		t.Error("expected topic image part")
	}

	if g.count("AttachQuestions") != 0 {
		t.Error("expected no attach call without assignments")
	}
	if st := c.Topics.State(opstate.KindAdd); st.Status != opstate.StatusSucceeded {
		t.Errorf("expected add succeeded, got %s", st.Status)
	}
	if _, ok := c.Topics.Get(topic.ID); !ok {
		t.Error("expected topic in store")
	}

	wfs := c.Workflows()
	if len(wfs) != 1 || wfs[0].State != journal.StateAttached {
		t.Errorf("unexpected workflows %+v", wfs)
	}
}

func TestCreateTopicAttachesQuestions(t *testing.T) {
	g := newFakeGateway()
	c := newTestConsole(t, g)
	ctx := context.Background()
	withLevels(t, c, g)

	assignments := []LessonAssignment{
		{QuestionID: "q1", LessonOrder: 1},
		{QuestionID: "q2", LessonOrder: 3},
		{QuestionID: "q1", LessonOrder: 2},
	}
	topic, err := c.CreateTopic(ctx, topicInput("l2"), assignments)
	if err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}

	if len(g.attachCalls) != 1 {
		t.Fatalf("expected one attach call, got %d", len(g.attachCalls))
	}
	req := g.attachCalls[0]
	if req.Topic != topic.ID {
		t.Errorf("expected attach to target the new topic, got %q", req.Topic)
	}
	if len(req.Questions) != 2 || req.Questions[0].Question != "q1" || req.Questions[0].LessonOrder != 1 {
		t.Errorf("expected duplicate questions to be dropped, got %+v", req.Questions)
	}
}

func TestCreateTopicPartialFailure(t *testing.T) {
	g := newFakeGateway()
	g.failWith("AttachQuestions", errRemote)
	j := journal.NewMemoryRecorder()
	c := newTestConsole(t, g, WithJournal(j))
	ctx := context.Background()
	withLevels(t, c, g)

	topic, err := c.CreateTopic(ctx, topicInput("l1"), []LessonAssignment{{QuestionID: "q1", LessonOrder: 2}})

	var perr *PartialFailureError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PartialFailureError, got %v", err)
	}
	if !errors.Is(err, errRemote) {
		t.Error("expected the attach error to be wrapped")
	}
	if !IsPartialFailure(err) {
		t.Error("expected IsPartialFailure to report true")
	}
	if perr.Topic.ID != topic.ID || topic.ID == "" {
		t.Errorf("expected the created topic to be returned, got %+v", perr.Topic)
	}

	if _, ok := c.Topics.Get(topic.ID); !ok {
		t.Error("expected created topic to stay in the store")
	}
	st := c.Topics.State(opstate.KindAdd)
	if st.Status != opstate.StatusPartial || st.Error != errRemote.Error() {
		t.Errorf("expected partial with the attach error, got %+v", st)
	}

	orphans, err := c.PendingOrphans(ctx)
	if err != nil {
		t.Fatalf("PendingOrphans failed: %v", err)
	}
	if len(orphans) != 1 || orphans[0].TopicID != topic.ID || orphans[0].WorkflowID != perr.WorkflowID {
		t.Errorf("unexpected orphans %+v", orphans)
	}
	if len(orphans[0].Questions) != 1 || orphans[0].Questions[0].LessonOrder != 2 {
		t.Errorf("expected assignments to be journaled, got %+v", orphans[0].Questions)
	}
}

func TestCreateTopicRemoteRejection(t *testing.T) {
	g := newFakeGateway()
	g.failWith("CreateTopic", errRemote)
	c := newTestConsole(t, g)
	withLevels(t, c, g)

	_, err := c.CreateTopic(context.Background(), topicInput("l1"), []LessonAssignment{{QuestionID: "q1", LessonOrder: 1}})
	if !errors.Is(err, errRemote) || IsPartialFailure(err) {
		t.Fatalf("expected plain remote error, got %v", err)
	}
	if g.count("AttachQuestions") != 0 {
		t.Error("expected attach to be skipped")
	}
	if st := c.Topics.State(opstate.KindAdd); st.Status != opstate.StatusFailed {
		t.Errorf("expected failed, got %s", st.Status)
	}
	if len(c.Workflows()) != 0 {
		t.Error("expected no workflow for a rejected topic")
	}
}

func TestUpdateTopicSendsOldLevel(t *testing.T) {
	g := newFakeGateway()
	g.topics = []models.Topic{{ID: "t1", Name: "Greetings", Level: models.LevelRef{ID: "l1"}}}
	c := newTestConsole(t, g)
	ctx := context.Background()

	if err := c.FetchTopics(ctx); err != nil {
		t.Fatalf("FetchTopics failed: %v", err)
	}

	in := TopicInput{Name: "Hello", LevelID: "l2"}
	if _, err := c.UpdateTopic(ctx, "t1", in); err != nil {
		t.Fatalf("UpdateTopic failed: %v", err)
	}

	form := g.topicForms[0]
	if v, _ := form.Value("oldLevel"); v != "l1" {
		t.Errorf("expected oldLevel l1, got %q", v)
	}
	if form.HasFile(TopicImageField) {
		t.Error("expected no image part without a new image")
	}
	got, _ := c.Topics.Get("t1")
	if got.Name != "Hello" || got.Level.ID != "l2" {
		t.Errorf("expected topic replaced in place, got %+v", got)
	}
}

func TestAttachToLessonSendsDelta(t *testing.T) {
	g := newFakeGateway()
	g.questions = []models.Question{
		{ID: "q1", Topic: "t1", LessonOrder: 1},
		{ID: "q3", Topic: "t1", LessonOrder: 2},
	}
	c := newTestConsole(t, g)
	ctx := context.Background()

	if _, err := c.AttachToLesson(ctx, "t1", 1, []string{"q2"}); !errors.Is(err, ErrScopeNotLoaded) {
		t.Fatalf("expected ErrScopeNotLoaded, got %v", err)
	}

	if err := c.FetchQuestions(ctx, QuestionScope{TopicID: "t1"}); err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}

	lessons := c.Lessons()
	if len(lessons[0]) != 1 || len(lessons[1]) != 1 || len(lessons[2]) != 0 {
		t.Errorf("unexpected lesson partition %v", lessons)
	}

	sent, err := c.AttachToLesson(ctx, "t1", 1, []string{"q1", "q2", "", "q2"})
	if err != nil {
		t.Fatalf("AttachToLesson failed: %v", err)
	}
	if len(sent) != 1 || sent[0] != "q2" {
		t.Errorf("expected only q2 to be sent, got %v", sent)
	}

	req := g.attachCalls[0]
	if len(req.Questions) != 1 || req.Questions[0].Question != "q2" || req.Questions[0].LessonOrder != 1 {
		t.Errorf("unexpected attach body %+v", req)
	}
	if n := g.count("ListQuestions"); n != 2 {
		t.Errorf("expected questions to be fetched again, got %d list calls", n)
	}

	// Nothing new selected means nothing is sent
	sent, err = c.AttachToLesson(ctx, "t1", 1, []string{"q1"})
	if err != nil || sent != nil {
		t.Fatalf("expected empty delta to be a no-op, got %v %v", sent, err)
	}
	if n := g.count("AttachQuestions"); n != 1 {
		t.Errorf("expected no further attach call, got %d", n)
	}
}

func TestAttachToLessonRejectsBadLesson(t *testing.T) {
	c := newTestConsole(t, newFakeGateway())

	if _, err := c.AttachToLesson(context.Background(), "t1", 4, []string{"q1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLessonCandidatesMarksFixed(t *testing.T) {
	g := newFakeGateway()
	g.questions = []models.Question{{ID: "q1", Topic: "t1", LessonOrder: 3}}
	c := newTestConsole(t, g)

	if err := c.FetchQuestions(context.Background(), QuestionScope{TopicID: "t1"}); err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}

	offered := []models.Question{{ID: "q1"}, {ID: "q2"}}
	got, err := c.LessonCandidates("t1", 3, offered)
	if err != nil {
		t.Fatalf("LessonCandidates failed: %v", err)
	}
	if !got[0].Fixed || got[1].Fixed {
		t.Errorf("expected only q1 fixed, got %+v", got)
	}
}

func topicQuestion(topicID string, lesson int) *question.Form {
	return &question.Form{
		Requirement: "Translate",
		Text:        "dog",
		Difficulty:  models.DifficultyEasy,
		Type:        models.TypeTranslate,
		Context:     question.Context{TopicID: topicID, LessonOrder: lesson},
		Translate:   &question.TranslateForm{Items: []string{"собака"}},
	}
}

func TestAddedQuestionCountsAsAttached(t *testing.T) {
	g := newFakeGateway()
	g.questions = []models.Question{{ID: "q1", Topic: "t1", LessonOrder: 1}}
	c := newTestConsole(t, g)
	ctx := context.Background()

	if err := c.FetchQuestions(ctx, QuestionScope{TopicID: "t1"}); err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}

	added, err := c.AddQuestion(ctx, topicQuestion("t1", 2))
	if err != nil {
		t.Fatalf("AddQuestion failed: %v", err)
	}

	got, err := c.LessonCandidates("t1", 2, []models.Question{added})
	if err != nil {
		t.Fatalf("LessonCandidates failed: %v", err)
	}
	if !got[0].Fixed {
		t.Errorf("expected the added question to be fixed, got %+v", got)
	}

	sent, err := c.AttachToLesson(ctx, "t1", 2, []string{added.ID})
	if err != nil || sent != nil {
		t.Fatalf("expected nothing to attach, got %v %v", sent, err)
	}
	if n := g.count("AttachQuestions"); n != 0 {
		t.Errorf("expected no attach call, got %d", n)
	}
}

func TestUpdateAndDeleteKeepAttachedCurrent(t *testing.T) {
	g := newFakeGateway()
	g.questions = []models.Question{
		{ID: "q1", Topic: "t1", LessonOrder: 1},
		{ID: "q2", Topic: "t1", LessonOrder: 2},
	}
	c := newTestConsole(t, g)
	ctx := context.Background()

	if err := c.FetchQuestions(ctx, QuestionScope{TopicID: "t1"}); err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}

	if _, err := c.UpdateQuestion(ctx, "q1", topicQuestion("t1", 3)); err != nil {
		t.Fatalf("UpdateQuestion failed: %v", err)
	}
	if ids, _ := c.Attached("t1", 1); len(ids) != 0 {
		t.Errorf("expected lesson 1 to be empty, got %v", ids)
	}
	if ids, _ := c.Attached("t1", 3); len(ids) != 1 || ids[0] != "q1" {
		t.Errorf("expected q1 in lesson 3, got %v", ids)
	}
	if got, ok := c.Questions.Get("q1"); !ok || got.LessonOrder != 3 {
		t.Errorf("expected q1 replaced in place, got %+v", got)
	}

	if err := c.Dismiss(Questions, opstate.KindUpdate); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}

	moved := topicQuestion("", 0)
	moved.Context = question.Context{PoolID: "p1"}
	if _, err := c.UpdateQuestion(ctx, "q1", moved); err != nil {
		t.Fatalf("UpdateQuestion failed: %v", err)
	}
	if _, ok := c.Questions.Get("q1"); ok {
		t.Error("expected a question moved to a pool to leave the topic scope")
	}
	if ids, _ := c.Attached("t1", 3); len(ids) != 0 {
		t.Errorf("expected lesson 3 to be empty, got %v", ids)
	}

	if err := c.DeleteQuestion(ctx, "q2"); err != nil {
		t.Fatalf("DeleteQuestion failed: %v", err)
	}
	if ids, _ := c.Attached("t1", 2); len(ids) != 0 {
		t.Errorf("expected deleted question to leave lesson 2, got %v", ids)
	}
	if c.Questions.Len() != 0 {
		t.Errorf("expected no questions held, got %d", c.Questions.Len())
	}
}

func TestAttachToLessonResolvesOrphan(t *testing.T) {
	g := newFakeGateway()
	g.failWith("AttachQuestions", errRemote)
	j := journal.NewMemoryRecorder()
	c := newTestConsole(t, g, WithJournal(j))
	ctx := context.Background()
	withLevels(t, c, g)

	topic, err := c.CreateTopic(ctx, topicInput("l1"), []LessonAssignment{{QuestionID: "q1", LessonOrder: 1}})
	if !IsPartialFailure(err) {
		t.Fatalf("expected partial failure, got %v", err)
	}

	g.failWith("AttachQuestions", nil)
	if err := c.FetchQuestions(ctx, QuestionScope{TopicID: topic.ID}); err != nil {
		t.Fatalf("FetchQuestions failed: %v", err)
	}
	if _, err := c.AttachToLesson(ctx, topic.ID, 1, []string{"q1"}); err != nil {
		t.Fatalf("AttachToLesson failed: %v", err)
	}

	orphans, err := c.PendingOrphans(ctx)
	if err != nil {
		t.Fatalf("PendingOrphans failed: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("expected no orphans after attaching, got %+v", orphans)
	}

	resolved, err := j.ListByState(ctx, journal.StateAttached)
	if err != nil {
		t.Fatalf("ListByState failed: %v", err)
	}
	if len(resolved) != 1 || resolved[0].TopicID != topic.ID || resolved[0].Error != "" {
		t.Errorf("expected the workflow recorded attached, got %+v", resolved)
	}

	wfs := c.Workflows()
	if len(wfs) != 1 || wfs[0].State != journal.StateAttached || wfs[0].Error != "" {
		t.Errorf("expected workflow marked attached, got %+v", wfs)
	}
}

func TestPrepareTopicForm(t *testing.T) {
	g := newFakeGateway()
	g.levels = []models.Level{{ID: "l1", Name: "A1"}}
	c := newTestConsole(t, g)
	ctx := context.Background()

	lvl, err := c.PrepareTopicForm(ctx)
	if err != nil {
		t.Fatalf("PrepareTopicForm failed: %v", err)
	}
	if lvl.ID != "l1" {
		t.Errorf("expected first level preselected, got %+v", lvl)
	}

	if _, err := c.PrepareTopicForm(ctx); err != nil {
		t.Fatalf("second PrepareTopicForm failed: %v", err)
	}
	if n := g.count("ListLevels"); n != 1 {
		t.Errorf("expected loaded levels to be reused, got %d list calls", n)
	}
}

func TestUnknownEntityAndKind(t *testing.T) {
	c := newTestConsole(t, newFakeGateway())

	if err := c.Search("lessons", "x"); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
	if err := c.Dismiss(Learners, opstate.KindAdd); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if err := c.Dismiss(Levels, opstate.KindFetch); err != nil {
		t.Errorf("expected dismissing an idle machine to be fine, got %v", err)
	}
}
