package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/levijcl/Wei-sub000/internal/wes/domain"
	mongotesting "github.com/levijcl/Wei-sub000/pkg/testing"
)

type PickingTaskRepositoryIntegrationTestSuite struct {
	suite.Suite
	container *mongotesting.MongoDBContainer
	client    *mongo.Client
	db        *mongo.Database
	repo      *PickingTaskRepository
	ctx       context.Context
}

func (s *PickingTaskRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := mongotesting.NewMongoDBContainer(s.ctx)
	s.Require().NoError(err)
	s.container = container

	client, err := container.GetClient(s.ctx)
	s.Require().NoError(err)
	s.client = client

	s.db = client.Database("fulfillment_test")
	s.repo = NewPickingTaskRepository(s.db)
}

func (s *PickingTaskRepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Disconnect(s.ctx)
	}
	if s.container != nil {
		s.Require().NoError(s.container.Close(s.ctx))
	}
}

func (s *PickingTaskRepositoryIntegrationTestSuite) TearDownTest() {
	s.db.Collection("picking_tasks").Drop(s.ctx)
}

func TestPickingTaskRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(PickingTaskRepositoryIntegrationTestSuite))
}

func (s *PickingTaskRepositoryIntegrationTestSuite) newTask(orderID string) *domain.PickingTask {
	task, err := domain.CreateForOrder(orderID, []domain.TaskItem{
		{SKU: "SKU-100", Quantity: 2, Location: "WH001"},
	}, 5)
	s.Require().NoError(err)
	task.ClearDomainEvents()
	return task
}

func (s *PickingTaskRepositoryIntegrationTestSuite) TestSaveAndFindByID() {
	task := s.newTask("ORD-1")
	s.Require().NoError(s.repo.Save(s.ctx, task))

	found, err := s.repo.FindByID(s.ctx, task.TaskID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(domain.TaskPending, found.Status)
	s.Equal(domain.OriginOrchestratorSubmitted, found.Origin)
}

func (s *PickingTaskRepositoryIntegrationTestSuite) TestFindByWesTaskID() {
	task := s.newTask("ORD-1")
	s.Require().NoError(task.SubmitToWes("WES-77"))
	task.ClearDomainEvents()
	s.Require().NoError(s.repo.Save(s.ctx, task))

	found, err := s.repo.FindByWesTaskID(s.ctx, "WES-77")
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(task.TaskID, found.TaskID)

	missing, err := s.repo.FindByWesTaskID(s.ctx, "WES-404")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *PickingTaskRepositoryIntegrationTestSuite) TestUnsubmittedTasksDoNotCollide() {
	// the unique index on wesTaskId is partial, so tasks that were
	// never submitted can coexist without one
	s.Require().NoError(s.repo.Save(s.ctx, s.newTask("ORD-1")))
	s.Require().NoError(s.repo.Save(s.ctx, s.newTask("ORD-2")))

	pending, err := s.repo.FindByStatus(s.ctx, domain.TaskPending, 10)
	s.Require().NoError(err)
	s.Len(pending, 2)
}

func (s *PickingTaskRepositoryIntegrationTestSuite) TestFindByOrderID() {
	s.Require().NoError(s.repo.Save(s.ctx, s.newTask("ORD-1")))
	s.Require().NoError(s.repo.Save(s.ctx, s.newTask("ORD-1")))
	s.Require().NoError(s.repo.Save(s.ctx, s.newTask("ORD-2")))

	tasks, err := s.repo.FindByOrderID(s.ctx, "ORD-1")
	s.Require().NoError(err)
	s.Len(tasks, 2)
}
