package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/http"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/log"
	internal_storage "github.com/shubendhum/Catalyst-project-langgraph-sub004/internal/storage"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/broadcast"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/llm"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/models"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/pipeline"
	"github.com/shubendhum/Catalyst-project-langgraph-sub004/pkg/storage"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Catalyst API server",
		Run: func(cmd *cobra.Command, args []string) {
			port, _ := cmd.Flags().GetString("port")
			store := storeFromFlags(cmd)
			defer store.Close()

			gateway, err := llm.NewGateway(gatewayConfigFromEnv())
			if err != nil {
				log.GetLogger().Errorf("Failed to configure LLM gateway: %v", err)
				os.Exit(1)
			}
			bc := broadcast.NewBroadcaster(log.GetLogger())
			deps := pipeline.AgentDeps(gateway, store, bc, log.GetLogger())
			orch := pipeline.NewOrchestrator(store, pipeline.Stages(deps), log.GetLogger(), pipeline.Config{StageRetries: stageRetriesFromEnv()})

			if err := http.StartServer(port, store, orch, bc); err != nil {
				log.GetLogger().Errorf("Server stopped: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "8080", "HTTP listen port")

	createCmd := &cobra.Command{
		Use:   "create [prompt]",
		Short: "Create a new build task (queued, not started)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			projectID, _ := cmd.Flags().GetString("project")
			store := storeFromFlags(cmd)
			defer store.Close()

			now := time.Now().UTC()
			task := models.Task{
				ID:        uuid.NewString(),
				ProjectID: projectID,
				Prompt:    args[0],
				Status:    models.QueuedTaskStatus,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := store.SaveTask(task); err != nil {
				log.GetLogger().Errorf("Failed to create task: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to create task: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Created task %s\n", task.ID)
		},
	}
	createCmd.Flags().String("project", "", "Project the task belongs to")

	runCmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Create a task and run its pipeline to completion",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			projectID, _ := cmd.Flags().GetString("project")
			store := storeFromFlags(cmd)
			defer store.Close()

			gateway, err := llm.NewGateway(gatewayConfigFromEnv())
			if err != nil {
				log.GetLogger().Errorf("Failed to configure LLM gateway: %v", err)
				os.Exit(1)
			}
			bc := broadcast.NewBroadcaster(log.GetLogger())
			deps := pipeline.AgentDeps(gateway, store, bc, log.GetLogger())
			orch := pipeline.NewOrchestrator(store, pipeline.Stages(deps), log.GetLogger(), pipeline.Config{StageRetries: stageRetriesFromEnv()})

			now := time.Now().UTC()
			task := models.Task{
				ID:        uuid.NewString(),
				ProjectID: projectID,
				Prompt:    args[0],
				Status:    models.QueuedTaskStatus,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := store.SaveTask(task); err != nil {
				log.GetLogger().Errorf("Failed to create task: %v", err)
				os.Exit(1)
			}

			// Stream the run's log lines to stdout while it executes.
			bc.Register(task.ID, stdoutChannel{})
			if err := orch.StartRun(task); err != nil {
				log.GetLogger().Errorf("Failed to start run: %v", err)
				os.Exit(1)
			}
			orch.Wait(task.ID)

			final, err := store.GetTask(task.ID)
			if err != nil {
				log.GetLogger().Errorf("Failed to read back task %s: %v", task.ID, err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Task %s finished with status %s\n", final.ID, final.Status)
			if final.Status != models.SucceededTaskStatus {
				os.Exit(1)
			}
		},
	}
	runCmd.Flags().String("project", "", "Project the task belongs to")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		Run: func(cmd *cobra.Command, args []string) {
			store := storeFromFlags(cmd)
			defer store.Close()
			tasks, err := store.ListTasks()
			if err != nil {
				log.GetLogger().Errorf("Failed to list tasks: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to list tasks: %v\n", err)
				os.Exit(1)
			}
			if len(tasks) == 0 {
				fmt.Fprintf(os.Stdout, "No tasks found.\n")
				return
			}
			fmt.Fprintf(os.Stdout, "Tasks:\n")
			for _, t := range tasks {
				fmt.Fprintf(os.Stdout, "- ID: %s, Status: %s, Project: %s, Created: %s\n",
					t.ID, t.Status, t.ProjectID, t.CreatedAt.Format(time.RFC3339))
			}
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := storeFromFlags(cmd)
			defer store.Close()
			task, err := store.GetTask(args[0])
			if err != nil {
				log.GetLogger().Errorf("Failed to get task: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to get task: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "ID: %s\nProject: %s\nStatus: %s\nStage: %d\nPrompt: %s\n",
				task.ID, task.ProjectID, task.Status, task.CurrentStage, task.Prompt)
			if task.State.FailedStage != "" {
				fmt.Fprintf(os.Stdout, "Failed at: %s (%s): %s\n", task.State.FailedStage, task.State.ErrorKind, task.State.Error)
			}
		},
	}

	logsCmd := &cobra.Command{
		Use:   "logs [id]",
		Short: "Show the persisted log of a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := storeFromFlags(cmd)
			defer store.Close()
			logs, err := store.ListLogs(args[0])
			if err != nil {
				log.GetLogger().Errorf("Failed to list logs: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to list logs: %v\n", err)
				os.Exit(1)
			}
			for _, e := range logs {
				fmt.Fprintf(os.Stdout, "%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.AgentName, e.Message)
			}
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a queued task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := storeFromFlags(cmd)
			defer store.Close()
			task, err := store.GetTask(args[0])
			if err != nil {
				log.GetLogger().Errorf("Failed to get task: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to get task: %v\n", err)
				os.Exit(1)
			}
			if task.Status.Terminal() {
				fmt.Fprintf(os.Stdout, "Task %s is already %s\n", task.ID, task.Status)
				return
			}
			if err := store.UpdateTaskStatus(task.ID, models.CancelledTaskStatus, task.CurrentStage); err != nil {
				log.GetLogger().Errorf("Failed to cancel task: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to cancel task: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Cancelled task %s\n", task.ID)
		},
	}

	rootCmd.AddCommand(serveCmd, createCmd, runCmd, listCmd, getCmd, logsCmd, cancelCmd)
}

// stdoutChannel prints live events; used by the run command.
type stdoutChannel struct{}

func (stdoutChannel) Send(e models.AgentLogEvent) error {
	_, err := fmt.Fprintf(os.Stdout, "[%s] %s\n", e.AgentName, e.Message)
	return err
}

func storeFromFlags(cmd *cobra.Command) storage.Store {
	dbConnStr, err := cmd.Flags().GetString("db")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving db flag: %v", err)
		os.Exit(1)
	}
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}

// gatewayConfigFromEnv assembles the LLM gateway configuration. A .env file
// is honored when present, matching the migrate tooling.
func gatewayConfigFromEnv() llm.Config {
	if err := godotenv.Load(); err != nil {
		log.GetLogger().Debugf("No .env file loaded: %v", err)
	}
	apiKey := os.Getenv("CATALYST_LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cfg := llm.Config{
		Provider: os.Getenv("CATALYST_LLM_PROVIDER"),
		Model:    os.Getenv("CATALYST_LLM_MODEL"),
		APIKey:   apiKey,
	}
	if secs := os.Getenv("CATALYST_LLM_TIMEOUT_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

func stageRetriesFromEnv() int {
	if v := os.Getenv("CATALYST_STAGE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return 0
}
