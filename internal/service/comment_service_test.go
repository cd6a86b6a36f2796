package service

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var _ = Describe("CommentService", func() {
	var (
		ctx        context.Context
		store      *fakeStore
		ticketRepo *fakeTicketRepo
		repo       *fakeCommentRepo
		dispatcher *recordingDispatcher
		tickets    *TicketService
		svc        *CommentService

		alice domain.Identity // employee, ticket creator
		bob   domain.Identity // employee, unrelated
		root  domain.Identity // admin

		ticket *domain.Ticket
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		ticketRepo = &fakeTicketRepo{store: store}
		repo = &fakeCommentRepo{store: store}
		dispatcher = &recordingDispatcher{}
		tickets = NewTicketService(TicketDependencies{TicketRepo: ticketRepo})
		svc = NewCommentService(CommentDependencies{
			CommentRepo: repo,
			TicketRepo:  ticketRepo,
			Dispatcher:  dispatcher,
		})

		store.addUser("u-alice", "alice", domain.RoleEmployee, domain.DepartmentIT)
		store.addUser("u-bob", "bob", domain.RoleEmployee, domain.DepartmentHR)
		store.addUser("u-root", "root", domain.RoleAdmin, domain.DepartmentIT)
		alice = domain.Identity{UserID: "u-alice", Role: domain.RoleEmployee}
		bob = domain.Identity{UserID: "u-bob", Role: domain.RoleEmployee}
		root = domain.Identity{UserID: "u-root", Role: domain.RoleAdmin}

		var err error
		ticket, err = tickets.CreateTicket(ctx, alice, TicketCreateInput{
			Title:       "printer jam",
			Description: "tray two again",
			Department:  domain.DepartmentIT,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("AddComment", func() {
		It("lets the ticket creator comment", func() {
			comment, err := svc.AddComment(ctx, alice, ticket.ID, "checked the tray")
			Expect(err).NotTo(HaveOccurred())
			Expect(comment.TicketID).To(Equal(ticket.ID))
			Expect(comment.UserID).To(Equal("u-alice"))
			Expect(comment.Author).NotTo(BeNil())
			Expect(comment.Author.Name).To(Equal("alice"))
		})

		It("lets an admin comment on any ticket", func() {
			_, err := svc.AddComment(ctx, root, ticket.ID, "escalating")
			Expect(err).NotTo(HaveOccurred())
		})

		It("forbids an unrelated employee", func() {
			_, err := svc.AddComment(ctx, bob, ticket.ID, "me too")
			Expect(apperrors.IsCode(err, "FORBIDDEN")).To(BeTrue())
		})

		It("rejects an empty or whitespace-only message", func() {
			_, err := svc.AddComment(ctx, alice, ticket.ID, "   ")
			Expect(apperrors.IsCode(err, "VALIDATION_FAILED")).To(BeTrue())
		})

		It("trims the message before storing", func() {
			comment, err := svc.AddComment(ctx, alice, ticket.ID, "  trimmed  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(comment.Message).To(Equal("trimmed"))
		})

		It("returns ticket not found for a missing ticket", func() {
			_, err := svc.AddComment(ctx, alice, "tkt-missing", "hello")
			Expect(apperrors.IsCode(err, "NOT_FOUND")).To(BeTrue())
		})

		It("publishes a comment_added event with a message preview", func() {
			long := strings.Repeat("x", 200)
			_, err := svc.AddComment(ctx, alice, ticket.ID, long)
			Expect(err).NotTo(HaveOccurred())

			published := dispatcher.byType(events.EventCommentAdded)
			Expect(published).To(HaveLen(1))
			payload, ok := published[0].Payload.(events.CommentAddedPayload)
			Expect(ok).To(BeTrue())
			Expect(payload.AuthorID).To(Equal("u-alice"))
			Expect(len(payload.MessagePreview)).To(Equal(120))
			Expect(payload.MessagePreview).To(HaveSuffix("..."))
		})
	})

	Describe("ListComments", func() {
		BeforeEach(func() {
			_, err := svc.AddComment(ctx, alice, ticket.ID, "first")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.AddComment(ctx, root, ticket.ID, "second")
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the thread oldest first with authors resolved", func() {
			comments, err := svc.ListComments(ctx, alice, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(2))
			Expect(comments[0].Message).To(Equal("first"))
			Expect(comments[1].Message).To(Equal("second"))
			Expect(comments[1].Author.Role).To(Equal(domain.RoleAdmin))
		})

		It("applies the same access predicate as AddComment", func() {
			_, err := svc.ListComments(ctx, bob, ticket.ID)
			Expect(apperrors.IsCode(err, "FORBIDDEN")).To(BeTrue())
		})

		It("returns ticket not found for a missing ticket", func() {
			_, err := svc.ListComments(ctx, alice, "tkt-missing")
			Expect(apperrors.IsCode(err, "NOT_FOUND")).To(BeTrue())
		})
	})

	Describe("DeleteComment", func() {
		var adminComment, aliceComment *domain.Comment

		BeforeEach(func() {
			var err error
			aliceComment, err = svc.AddComment(ctx, alice, ticket.ID, "mine")
			Expect(err).NotTo(HaveOccurred())
			adminComment, err = svc.AddComment(ctx, root, ticket.ID, "admin note")
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets the author delete their own comment", func() {
			Expect(svc.DeleteComment(ctx, alice, aliceComment.ID)).To(Succeed())
			comments, err := svc.ListComments(ctx, alice, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(comments).To(HaveLen(1))
		})

		It("does not let the ticket creator delete someone else's comment", func() {
			err := svc.DeleteComment(ctx, alice, adminComment.ID)
			Expect(apperrors.IsCode(err, "FORBIDDEN")).To(BeTrue())
		})

		It("lets an admin delete any comment", func() {
			Expect(svc.DeleteComment(ctx, root, aliceComment.ID)).To(Succeed())
		})

		It("returns comment not found for a missing comment", func() {
			err := svc.DeleteComment(ctx, alice, "cmt-missing")
			Expect(apperrors.IsCode(err, "NOT_FOUND")).To(BeTrue())
		})

		It("publishes a comment_deleted event", func() {
			Expect(svc.DeleteComment(ctx, alice, aliceComment.ID)).To(Succeed())
			published := dispatcher.byType(events.EventCommentDeleted)
			Expect(published).To(HaveLen(1))
			Expect(published[0].TicketID).To(Equal(ticket.ID))
		})
	})

	Describe("RemoveTicketThread", func() {
		It("removes every comment on the ticket and nothing else", func() {
			other, err := tickets.CreateTicket(ctx, bob, TicketCreateInput{
				Title:       "other",
				Description: "unrelated issue",
				Department:  domain.DepartmentHR,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.AddComment(ctx, alice, ticket.ID, "one")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.AddComment(ctx, root, ticket.ID, "two")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.AddComment(ctx, bob, other.ID, "keep me")
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.RemoveTicketThread(ctx, ticket.ID)).To(Succeed())

			count, err := repo.CountByTicket(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			kept, err := svc.ListComments(ctx, bob, other.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(kept).To(HaveLen(1))
		})

		It("is a no-op on a ticket with no comments", func() {
			Expect(svc.RemoveTicketThread(ctx, ticket.ID)).To(Succeed())
		})
	})
})
